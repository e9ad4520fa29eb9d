package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"testing"
	"time"

	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/plan"
)

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	g := NewGateway("https://gateway.test", "key", "secret")

	sig := sign("secret", "order_1", "pay_1")
	if !g.VerifySignature("order_1", "pay_1", sig) {
		t.Fatal("valid signature rejected")
	}
	if g.VerifySignature("order_1", "pay_2", sig) {
		t.Fatal("signature accepted for wrong payment id")
	}
	if g.VerifySignature("order_1", "pay_1", sig+"00") {
		t.Fatal("tampered signature accepted")
	}
	if g.VerifySignature("order_1", "pay_1", "") {
		t.Fatal("empty signature accepted")
	}
}

func TestExpireIfLapsed(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("paid plan past period end downgrades", func(t *testing.T) {
		acc := &model.Account{}
		acc.Plan = plan.Pro
		acc.SubscriptionStatus = model.SubActive
		acc.PeriodEnd = sql.NullTime{Time: now.AddDate(0, 0, -1), Valid: true}
		acc.CancelAtPeriodEnd = true

		if !ExpireIfLapsed(acc, now) {
			t.Fatal("expected downgrade")
		}
		if acc.Plan != plan.Free {
			t.Fatalf("plan = %q, want free", acc.Plan)
		}
		if acc.SubscriptionStatus != model.SubExpired {
			t.Fatalf("status = %q, want expired", acc.SubscriptionStatus)
		}
		if acc.CancelAtPeriodEnd {
			t.Fatal("cancel flag should clear on downgrade")
		}
	})

	t.Run("paid plan inside period untouched", func(t *testing.T) {
		acc := &model.Account{}
		acc.Plan = plan.Premium
		acc.SubscriptionStatus = model.SubActive
		acc.PeriodEnd = sql.NullTime{Time: now.AddDate(0, 0, 10), Valid: true}

		if ExpireIfLapsed(acc, now) {
			t.Fatal("active period must not downgrade")
		}
		if acc.Plan != plan.Premium {
			t.Fatalf("plan = %q, want premium", acc.Plan)
		}
	})

	t.Run("free plan is a no-op", func(t *testing.T) {
		acc := &model.Account{}
		acc.Plan = plan.Free
		if ExpireIfLapsed(acc, now) {
			t.Fatal("free plan cannot lapse")
		}
	})

	t.Run("paid plan without period end untouched", func(t *testing.T) {
		acc := &model.Account{}
		acc.Plan = plan.Pro
		if ExpireIfLapsed(acc, now) {
			t.Fatal("missing period end must not downgrade")
		}
	})
}
