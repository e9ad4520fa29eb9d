package quota

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/careercraft/careercraft_service/internal/account"
	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/plan"
)

type fakeStore struct {
	acc        *model.Account
	saves      int
	increments []plan.Resource
}

func (f *fakeStore) ByID(_ context.Context, id int64) (*model.Account, error) {
	if f.acc == nil || f.acc.ID != id {
		return nil, account.ErrNotFound
	}
	cp := *f.acc
	return &cp, nil
}

func (f *fakeStore) SaveUsageWindow(_ context.Context, acc *model.Account) error {
	f.saves++
	f.acc.Usage = acc.Usage
	return nil
}

func (f *fakeStore) IncrementUsage(_ context.Context, id int64, res plan.Resource) error {
	if f.acc == nil || f.acc.ID != id {
		return account.ErrNotFound
	}
	f.increments = append(f.increments, res)
	return nil
}

func newLimiterAt(acc *model.Account, now time.Time) (*Limiter, *fakeStore) {
	st := &fakeStore{acc: acc}
	l := NewLimiter(st)
	l.now = func() time.Time { return now }
	return l, st
}

func freeAccount() *model.Account {
	return &model.Account{
		ID: 1,
		Subscription: model.Subscription{
			Plan:               plan.Free,
			SubscriptionStatus: model.SubActive,
		},
		Usage: model.Usage{
			WindowStartedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		},
	}
}

func TestCheckNotFound(t *testing.T) {
	l, _ := newLimiterAt(freeAccount(), time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC))
	if _, err := l.Check(context.Background(), 999, plan.ResourceDocuments); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMonthlyWindowReset(t *testing.T) {
	acc := freeAccount()
	acc.QueriesThisPeriod = 49
	acc.InterviewsThisMonth = 3
	now := time.Date(2026, 4, 1, 0, 30, 0, 0, time.UTC)

	l, st := newLimiterAt(acc, now)
	denial, err := l.Check(context.Background(), 1, plan.ResourceQueries)
	if err != nil {
		t.Fatal(err)
	}
	if denial != nil {
		t.Fatalf("fresh window should allow, got denial %+v", denial)
	}
	if st.saves != 1 {
		t.Fatalf("reset must be persisted before the quota decision, saves=%d", st.saves)
	}
	if st.acc.QueriesThisPeriod != 0 || st.acc.InterviewsThisMonth != 0 {
		t.Fatalf("monthly counters not zeroed: %+v", st.acc.Usage)
	}
	if !st.acc.WindowStartedAt.Equal(now) {
		t.Fatalf("window start should be the moment of reset, got %v", st.acc.WindowStartedAt)
	}
}

func TestSameMonthNoReset(t *testing.T) {
	acc := freeAccount()
	acc.QueriesThisPeriod = 10
	l, st := newLimiterAt(acc, time.Date(2026, 3, 28, 9, 0, 0, 0, time.UTC))
	if _, err := l.Check(context.Background(), 1, plan.ResourceQueries); err != nil {
		t.Fatal(err)
	}
	if st.saves != 0 {
		t.Fatalf("no reset expected within the same month")
	}
	if st.acc.QueriesThisPeriod != 10 {
		t.Fatalf("counter must not change on check, got %d", st.acc.QueriesThisPeriod)
	}
}

func TestDailyQuizDenyThenRollover(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	acc := freeAccount()
	acc.QuizzesToday = 2
	acc.LastQuizAt = sql.NullTime{Time: day1, Valid: true}

	l, st := newLimiterAt(acc, day1)
	denial, err := l.Check(context.Background(), 1, plan.ResourceQuizzes)
	if err != nil {
		t.Fatal(err)
	}
	if denial == nil {
		t.Fatal("third quiz on the free plan should be denied")
	}
	if denial.Limit != 2 || denial.Usage != 2 {
		t.Fatalf("denial payload limit=%d usage=%d, want 2/2", denial.Limit, denial.Usage)
	}
	if !denial.UpgradeRequired || denial.CurrentPlan != plan.Free {
		t.Fatalf("denial should carry upgrade prompt fields: %+v", denial)
	}

	// Next calendar day: the first check zeroes the counter before deciding.
	day2 := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day2 }
	denial, err = l.Check(context.Background(), 1, plan.ResourceQuizzes)
	if err != nil {
		t.Fatal(err)
	}
	if denial != nil {
		t.Fatalf("quiz after day rollover should be allowed, got %+v", denial)
	}
	if st.acc.QuizzesToday != 0 {
		t.Fatalf("daily counter should be zero after rollover check, got %d", st.acc.QuizzesToday)
	}
}

func TestUnlimitedNeverDenies(t *testing.T) {
	for _, used := range []int{0, 1, 1000000} {
		acc := freeAccount()
		acc.Plan = plan.Premium
		acc.DocumentsUploaded = used
		l, _ := newLimiterAt(acc, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
		denial, err := l.Check(context.Background(), 1, plan.ResourceDocuments)
		if err != nil {
			t.Fatal(err)
		}
		if denial != nil {
			t.Fatalf("unlimited quota denied at used=%d", used)
		}
	}
}

func TestFiniteQuotaBoundary(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	limit := plan.ByID(plan.Free).Quota(plan.ResourceDocuments).Limit()

	for used := 0; used <= limit; used++ {
		acc := freeAccount()
		acc.DocumentsUploaded = used
		l, _ := newLimiterAt(acc, now)
		denial, err := l.Check(context.Background(), 1, plan.ResourceDocuments)
		if err != nil {
			t.Fatal(err)
		}
		if used < limit && denial != nil {
			t.Fatalf("used=%d < limit=%d should allow", used, limit)
		}
		if used == limit && denial == nil {
			t.Fatalf("used=%d == limit=%d should deny", used, limit)
		}
	}
}

func TestInterviewZeroQuotaHardDeny(t *testing.T) {
	acc := freeAccount()
	l, _ := newLimiterAt(acc, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	denial, err := l.Check(context.Background(), 1, plan.ResourceInterviews)
	if err != nil {
		t.Fatal(err)
	}
	if denial == nil {
		t.Fatal("free plan has no interview allowance; check must deny with counter at zero")
	}
	if denial.Limit != 0 || denial.Usage != 0 {
		t.Fatalf("denial payload limit=%d usage=%d, want 0/0", denial.Limit, denial.Usage)
	}
}

func TestIncrementSeparateFromCheck(t *testing.T) {
	acc := freeAccount()
	l, st := newLimiterAt(acc, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	if _, err := l.Check(context.Background(), 1, plan.ResourceDecks); err != nil {
		t.Fatal(err)
	}
	if len(st.increments) != 0 {
		t.Fatal("check must not increment")
	}
	if err := l.Increment(context.Background(), 1, plan.ResourceDecks); err != nil {
		t.Fatal(err)
	}
	if len(st.increments) != 1 || st.increments[0] != plan.ResourceDecks {
		t.Fatalf("increment not recorded: %v", st.increments)
	}
}

func TestResetIfWindowElapsed(t *testing.T) {
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	u := model.Usage{
		QueriesThisPeriod:   7,
		InterviewsThisMonth: 1,
		QuizzesToday:        2,
		LastQuizAt:          sql.NullTime{Time: time.Date(2026, 4, 1, 23, 59, 0, 0, time.UTC), Valid: true},
		WindowStartedAt:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		DocumentsUploaded:   5,
		DecksCreated:        3,
	}

	got, changed := ResetIfWindowElapsed(u, now)
	if !changed {
		t.Fatal("elapsed month and day must report a change")
	}
	if got.QueriesThisPeriod != 0 || got.InterviewsThisMonth != 0 || got.QuizzesToday != 0 {
		t.Fatalf("windowed counters not zeroed: %+v", got)
	}
	// Lifetime counters are untouched by window resets.
	if got.DocumentsUploaded != 5 || got.DecksCreated != 3 {
		t.Fatalf("lifetime counters must survive resets: %+v", got)
	}
	if !got.WindowStartedAt.Equal(now) || !got.LastQuizAt.Time.Equal(now) {
		t.Fatalf("reset stamps must be the moment of reset: %+v", got)
	}

	// Idempotent within the same windows.
	again, changed := ResetIfWindowElapsed(got, now)
	if changed {
		t.Fatalf("second pass in the same window should be a no-op, got %+v", again)
	}
}
