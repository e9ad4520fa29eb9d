// Package quota gates plan-limited actions and performs lazy calendar-window
// resets of the usage counters.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/plan"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

// Denial is the structured rejection returned when a quota check fails.
// Serialized as-is into a 403 body so the client can render an upgrade
// prompt.
type Denial struct {
	Message         string `json:"message"`
	UpgradeRequired bool   `json:"upgradeRequired"`
	CurrentPlan     string `json:"currentPlan"`
	Limit           int    `json:"limit"`
	Usage           int    `json:"usage"`
}

// Store is the slice of the account repository the limiter needs.
type Store interface {
	ByID(ctx context.Context, id int64) (*model.Account, error)
	SaveUsageWindow(ctx context.Context, acc *model.Account) error
	IncrementUsage(ctx context.Context, id int64, res plan.Resource) error
}

type Limiter struct {
	store Store
	now   func() time.Time
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Check decides whether one more unit of res may be consumed by the account.
// A non-nil Denial with nil error means "denied"; callers must branch on it
// rather than on an error. Check never mutates consumed counters, only the
// window-reset fields.
func (l *Limiter) Check(ctx context.Context, accountID int64, res plan.Resource) (*Denial, error) {
	acc, err := l.store.ByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	if usage, reset := ResetIfWindowElapsed(acc.Usage, now); reset {
		acc.Usage = usage
		if err := l.store.SaveUsageWindow(ctx, acc); err != nil {
			return nil, err
		}
		telemetry.L().Debug().Int64("user_id", accountID).Msg("usage_window_reset")
	}

	p := plan.ByID(acc.Plan)
	q := p.Quota(res)

	// Free-tier interview allowance of zero is a hard no, not an allowance
	// consumed instantly.
	if res == plan.ResourceInterviews && !q.IsUnlimited() && q.Limit() == 0 {
		return l.deny(acc, res, q), nil
	}

	used := usedCounter(acc.Usage, res)
	if q.Allows(used) {
		return nil, nil
	}
	return l.deny(acc, res, q), nil
}

func (l *Limiter) deny(acc *model.Account, res plan.Resource, q plan.Quota) *Denial {
	used := usedCounter(acc.Usage, res)
	telemetry.L().Info().
		Int64("user_id", acc.ID).
		Str("resource", string(res)).
		Int("limit", q.Limit()).
		Int("usage", used).
		Msg("quota_denied")
	return &Denial{
		Message:         fmt.Sprintf("%s limit reached for the %s plan", resourceLabel(res), acc.Plan),
		UpgradeRequired: true,
		CurrentPlan:     acc.Plan,
		Limit:           q.Limit(),
		Usage:           used,
	}
}

// Increment bumps the consumed counter for res by one. Called by handlers
// only after the gated action succeeded; deliberately separate from Check
// (the check-then-act race is accepted).
func (l *Limiter) Increment(ctx context.Context, accountID int64, res plan.Resource) error {
	return l.store.IncrementUsage(ctx, accountID, res)
}

// ResetIfWindowElapsed returns the usage with any elapsed calendar windows
// zeroed, and whether anything changed. Monthly counters reset when the
// stored window start falls in a different calendar month than now; the
// daily quiz counter resets when the last quiz fell on a different calendar
// day. The fresh window starts at now, not at the calendar boundary.
func ResetIfWindowElapsed(u model.Usage, now time.Time) (model.Usage, bool) {
	changed := false

	if !sameMonth(u.WindowStartedAt, now) {
		u.QueriesThisPeriod = 0
		u.InterviewsThisMonth = 0
		u.WindowStartedAt = now
		changed = true
	}

	if u.LastQuizAt.Valid && !sameDay(u.LastQuizAt.Time, now) && u.QuizzesToday != 0 {
		u.QuizzesToday = 0
		u.LastQuizAt.Time = now
		changed = true
	}

	return u, changed
}

func usedCounter(u model.Usage, res plan.Resource) int {
	switch res {
	case plan.ResourceDocuments:
		return u.DocumentsUploaded
	case plan.ResourceQueries:
		return u.QueriesThisPeriod
	case plan.ResourceQuizzes:
		return u.QuizzesToday
	case plan.ResourceDecks:
		return u.DecksCreated
	case plan.ResourceInterviews:
		return u.InterviewsThisMonth
	}
	return 0
}

func resourceLabel(res plan.Resource) string {
	switch res {
	case plan.ResourceDocuments:
		return "Document upload"
	case plan.ResourceQueries:
		return "AI query"
	case plan.ResourceQuizzes:
		return "Daily quiz"
	case plan.ResourceDecks:
		return "Flashcard deck"
	case plan.ResourceInterviews:
		return "Mock interview"
	}
	return "Usage"
}

// Calendar comparisons are done in UTC so every request agrees on the
// window boundary regardless of server locale.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func sameMonth(a, b time.Time) bool {
	ay, am, _ := a.UTC().Date()
	by, bm, _ := b.UTC().Date()
	return ay == by && am == bm
}
