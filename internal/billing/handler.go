package billing

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/careercraft/careercraft_service/internal/account"
	"github.com/careercraft/careercraft_service/internal/middleware"
	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/plan"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

type Handler struct {
	repo    *account.Repo
	gateway *Gateway
}

func NewHandler(repo *account.Repo, gateway *Gateway) *Handler {
	return &Handler{repo: repo, gateway: gateway}
}

// Plans lists the catalog; public, no auth.
func (h *Handler) Plans(c *fiber.Ctx) error {
	return c.JSON(plan.All())
}

type checkoutReq struct {
	Plan string `json:"plan"`
}

// Checkout opens a gateway order for a paid plan upgrade. The plan change
// happens only after Verify confirms payment.
func (h *Handler) Checkout(c *fiber.Ctx) error {
	userID := mustUserID(c)
	rid := c.Locals(middleware.ReqIDKey).(string)
	log := telemetry.L().With().Str("req_id", rid).Int64("user_id", userID).Logger()

	var req checkoutReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	p, ok := plan.Get(req.Plan)
	if !ok || p.PriceCents == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "not a purchasable plan"})
	}

	acc, err := h.repo.ByID(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if acc.Plan == p.ID && acc.SubscriptionStatus == model.SubActive {
		return c.Status(409).JSON(fiber.Map{"error": "already on this plan"})
	}

	receipt := fmt.Sprintf("user_%d_plan_%s_%d", userID, p.ID, time.Now().Unix())
	order, err := h.gateway.CreateOrder(c.Context(), p.PriceCents, p.Currency, receipt)
	if err != nil {
		log.Error().Err(err).Str("plan", p.ID).Msg("gateway_order_failed")
		return c.Status(502).JSON(fiber.Map{"error": "payment gateway unavailable"})
	}

	acc.GatewayOrderID = sql.NullString{String: order.ID, Valid: true}
	if err := h.repo.SaveSubscription(c.Context(), acc); err != nil {
		return c.Status(500).SendString("db error")
	}

	log.Info().Str("order_id", order.ID).Str("plan", p.ID).Msg("checkout_created")
	return c.JSON(fiber.Map{
		"order_id": order.ID,
		"amount":   order.Amount,
		"currency": order.Currency,
		"key_id":   h.gateway.KeyID,
	})
}

type verifyReq struct {
	Plan      string `json:"plan"`
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// Verify activates the plan once the gateway signature over the payment
// checks out.
func (h *Handler) Verify(c *fiber.Ctx) error {
	userID := mustUserID(c)
	rid := c.Locals(middleware.ReqIDKey).(string)
	log := telemetry.L().With().Str("req_id", rid).Int64("user_id", userID).Logger()

	var req verifyReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	p, ok := plan.Get(req.Plan)
	if !ok || p.PriceCents == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "not a purchasable plan"})
	}

	acc, err := h.repo.ByID(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if !acc.GatewayOrderID.Valid || acc.GatewayOrderID.String != req.OrderID {
		log.Warn().Str("order_id", req.OrderID).Msg("verify_unknown_order")
		return c.Status(400).JSON(fiber.Map{"error": "unknown order"})
	}
	if !h.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		log.Warn().Str("order_id", req.OrderID).Msg("verify_bad_signature")
		return c.Status(400).JSON(fiber.Map{"error": "signature mismatch"})
	}

	now := time.Now()
	acc.Plan = p.ID
	acc.SubscriptionStatus = model.SubActive
	acc.PeriodStart = sql.NullTime{Time: now, Valid: true}
	acc.PeriodEnd = sql.NullTime{Time: now.AddDate(0, 1, 0), Valid: true}
	acc.CancelAtPeriodEnd = false
	acc.GatewaySubscriptionID = sql.NullString{String: req.PaymentID, Valid: true}
	if err := h.repo.SaveSubscription(c.Context(), acc); err != nil {
		return c.Status(500).SendString("db error")
	}

	log.Info().Str("plan", p.ID).Str("order_id", req.OrderID).Msg("subscription_activated")
	return c.JSON(fiber.Map{"ok": true, "plan": p.ID, "period_end": acc.PeriodEnd.Time})
}

// Cancel marks the subscription to lapse at the period end; access stays
// until then.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	userID := mustUserID(c)
	acc, err := h.repo.ByID(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if acc.Plan == plan.Free {
		return c.Status(409).JSON(fiber.Map{"error": "nothing to cancel on the free plan"})
	}
	acc.CancelAtPeriodEnd = true
	acc.SubscriptionStatus = model.SubCanceled
	if err := h.repo.SaveSubscription(c.Context(), acc); err != nil {
		return c.Status(500).SendString("db error")
	}
	telemetry.L().Info().Int64("user_id", userID).Str("plan", acc.Plan).Msg("subscription_cancelled")
	out := fiber.Map{"ok": true}
	if acc.PeriodEnd.Valid {
		out["active_until"] = acc.PeriodEnd.Time
	}
	return c.JSON(out)
}

// Subscription reports the caller's billing state, applying the lazy
// downgrade when a paid period has lapsed.
func (h *Handler) Subscription(c *fiber.Ctx) error {
	userID := mustUserID(c)
	acc, err := h.repo.ByID(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if changed := ExpireIfLapsed(acc, time.Now()); changed {
		if err := h.repo.SaveSubscription(c.Context(), acc); err != nil {
			return c.Status(500).SendString("db error")
		}
		telemetry.L().Info().Int64("user_id", userID).Msg("subscription_expired_downgrade")
	}
	out := fiber.Map{
		"plan":                 acc.Plan,
		"status":               acc.SubscriptionStatus,
		"cancel_at_period_end": acc.CancelAtPeriodEnd,
	}
	if acc.PeriodEnd.Valid {
		out["period_end"] = acc.PeriodEnd.Time
	}
	return c.JSON(out)
}

// ExpireIfLapsed downgrades a paid account whose period end has passed.
// Pure over the account value; reports whether anything changed.
func ExpireIfLapsed(acc *model.Account, now time.Time) bool {
	if acc.Plan == plan.Free {
		return false
	}
	if !acc.PeriodEnd.Valid || now.Before(acc.PeriodEnd.Time) {
		return false
	}
	acc.Plan = plan.Free
	acc.SubscriptionStatus = model.SubExpired
	acc.CancelAtPeriodEnd = false
	return true
}

func mustUserID(c *fiber.Ctx) int64 {
	uid, ok := c.Locals("userID").(int64)
	if !ok {
		return 0
	}
	return uid
}
