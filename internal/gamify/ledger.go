// Package gamify awards experience points, tracks consecutive-day streaks,
// and computes XP-based ranks.
package gamify

import (
	"context"
	"time"

	"github.com/careercraft/careercraft_service/internal/account"
	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

// XP amounts per qualifying action.
const (
	XPUpload        = 10
	XPChat          = 5
	XPQuizCompleted = 20
	XPDeckCreated   = 15
	XPInterview     = 25
	DailyLoginXP    = 10

	// ChatXPDailyCap bounds the XP a user can farm from document chat in a
	// single calendar day.
	ChatXPDailyCap = 50
)

// streakMilestones maps streak lengths to one-time bonus XP. A bonus fires
// only on the transition call that reaches the length.
var streakMilestones = map[int]int64{
	7:   50,
	30:  200,
	100: 1000,
}

type AwardResult struct {
	XPAwarded int64 `json:"xpAwarded"`
	TotalXP   int64 `json:"totalXP"`
	BonusXP   int64 `json:"bonusXP"`
}

type StreakResult struct {
	CurrentStreak      int   `json:"currentStreak"`
	LongestStreak      int   `json:"longestStreak"`
	StreakBonusAwarded int64 `json:"streakBonusAwarded"`
}

type BonusResult struct {
	Success        bool  `json:"success"`
	XPAwarded      int64 `json:"xpAwarded"`
	AlreadyClaimed bool  `json:"alreadyClaimed"`
}

// Store is the slice of the account repository the ledger needs.
type Store interface {
	ByID(ctx context.Context, id int64) (*model.Account, error)
	SaveGamification(ctx context.Context, acc *model.Account) error
	CountRicher(ctx context.Context, xp int64) (int, error)
	TopByXP(ctx context.Context, limit int) ([]account.LeaderboardRow, error)
}

type Ledger struct {
	store Store
	now   func() time.Time
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// AwardXP grants amount XP to the account. The reason tag is free-form and
// used only for logging.
func (l *Ledger) AwardXP(ctx context.Context, accountID int64, amount int64, reason string) (AwardResult, error) {
	acc, err := l.store.ByID(ctx, accountID)
	if err != nil {
		return AwardResult{}, err
	}
	g, res := applyAward(acc.Gamification, amount)
	acc.Gamification = g
	if err := l.store.SaveGamification(ctx, acc); err != nil {
		return AwardResult{}, err
	}
	telemetry.L().Info().
		Int64("user_id", accountID).
		Int64("xp", res.XPAwarded).
		Str("reason", reason).
		Msg("xp_awarded")
	return res, nil
}

// AwardChatXP grants chat XP subject to the same-day cap. Once the day's
// accumulated chat XP reaches the ceiling, further awards grant zero.
func (l *Ledger) AwardChatXP(ctx context.Context, accountID int64) (AwardResult, error) {
	acc, err := l.store.ByID(ctx, accountID)
	if err != nil {
		return AwardResult{}, err
	}
	g, res := applyChatAward(acc.Gamification, l.now())
	acc.Gamification = g
	if err := l.store.SaveGamification(ctx, acc); err != nil {
		return AwardResult{}, err
	}
	telemetry.L().Info().
		Int64("user_id", accountID).
		Int64("xp", res.XPAwarded).
		Str("reason", "document_chat").
		Msg("xp_awarded")
	return res, nil
}

// AwardActionXP grants amount XP and records the action for streak purposes
// in one store round-trip. A streak milestone reached by the action lands in
// BonusXP and is already included in TotalXP.
func (l *Ledger) AwardActionXP(ctx context.Context, accountID int64, amount int64, reason string) (AwardResult, StreakResult, error) {
	acc, err := l.store.ByID(ctx, accountID)
	if err != nil {
		return AwardResult{}, StreakResult{}, err
	}
	g, award := applyAward(acc.Gamification, amount)
	g, streak := recordActivity(g, l.now())
	award.BonusXP = streak.StreakBonusAwarded
	award.TotalXP = g.XP
	acc.Gamification = g
	if err := l.store.SaveGamification(ctx, acc); err != nil {
		return AwardResult{}, StreakResult{}, err
	}
	telemetry.L().Info().
		Int64("user_id", accountID).
		Int64("xp", award.XPAwarded).
		Str("reason", reason).
		Msg("xp_awarded")
	if streak.StreakBonusAwarded > 0 {
		telemetry.L().Info().
			Int64("user_id", accountID).
			Int("streak", streak.CurrentStreak).
			Int64("bonus_xp", streak.StreakBonusAwarded).
			Msg("streak_milestone")
	}
	return award, streak, nil
}

// AwardChatActionXP is AwardActionXP for document chat: the grant respects
// the same-day chat cap.
func (l *Ledger) AwardChatActionXP(ctx context.Context, accountID int64) (AwardResult, StreakResult, error) {
	acc, err := l.store.ByID(ctx, accountID)
	if err != nil {
		return AwardResult{}, StreakResult{}, err
	}
	g, award := applyChatAward(acc.Gamification, l.now())
	g, streak := recordActivity(g, l.now())
	award.BonusXP = streak.StreakBonusAwarded
	award.TotalXP = g.XP
	acc.Gamification = g
	if err := l.store.SaveGamification(ctx, acc); err != nil {
		return AwardResult{}, StreakResult{}, err
	}
	telemetry.L().Info().
		Int64("user_id", accountID).
		Int64("xp", award.XPAwarded).
		Str("reason", "document_chat").
		Msg("xp_awarded")
	return award, streak, nil
}

// RecordActivity registers one qualifying action for streak purposes.
// Idempotent within a calendar day.
func (l *Ledger) RecordActivity(ctx context.Context, accountID int64) (StreakResult, error) {
	acc, err := l.store.ByID(ctx, accountID)
	if err != nil {
		return StreakResult{}, err
	}
	g, res := recordActivity(acc.Gamification, l.now())
	acc.Gamification = g
	if err := l.store.SaveGamification(ctx, acc); err != nil {
		return StreakResult{}, err
	}
	if res.StreakBonusAwarded > 0 {
		telemetry.L().Info().
			Int64("user_id", accountID).
			Int("streak", res.CurrentStreak).
			Int64("bonus_xp", res.StreakBonusAwarded).
			Msg("streak_milestone")
	}
	return res, nil
}

// ClaimDailyBonus grants the once-per-day login bonus.
func (l *Ledger) ClaimDailyBonus(ctx context.Context, accountID int64) (BonusResult, error) {
	acc, err := l.store.ByID(ctx, accountID)
	if err != nil {
		return BonusResult{}, err
	}
	g, res := claimDailyBonus(acc.Gamification, l.now())
	acc.Gamification = g
	if res.Success {
		if err := l.store.SaveGamification(ctx, acc); err != nil {
			return BonusResult{}, err
		}
	}
	return res, nil
}

// Rank is 1 + the number of accounts with strictly greater XP. Ties share
// the same number; the sequence is not densified.
func (l *Ledger) Rank(ctx context.Context, accountID int64) (int, error) {
	acc, err := l.store.ByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	richer, err := l.store.CountRicher(ctx, acc.XP)
	if err != nil {
		return 0, err
	}
	return richer + 1, nil
}

func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]account.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return l.store.TopByXP(ctx, limit)
}

func applyAward(g model.Gamification, amount int64) (model.Gamification, AwardResult) {
	if amount < 0 {
		amount = 0
	}
	g.XP += amount
	return g, AwardResult{XPAwarded: amount, TotalXP: g.XP}
}

func applyChatAward(g model.Gamification, now time.Time) (model.Gamification, AwardResult) {
	if !g.ChatXPDate.Valid || !sameDay(g.ChatXPDate.Time, now) {
		g.ChatXPToday = 0
	}
	g.ChatXPDate.Time, g.ChatXPDate.Valid = now, true

	grant := int64(XPChat)
	if remaining := int64(ChatXPDailyCap - g.ChatXPToday); remaining < grant {
		grant = remaining
	}
	if grant < 0 {
		grant = 0
	}
	g.ChatXPToday += int(grant)
	g.XP += grant
	return g, AwardResult{XPAwarded: grant, TotalXP: g.XP}
}

func recordActivity(g model.Gamification, now time.Time) (model.Gamification, StreakResult) {
	var bonus int64

	switch {
	case g.LastActivityAt.Valid && sameDay(g.LastActivityAt.Time, now):
		// Already counted today; streak fields stay put.
	case g.LastActivityAt.Valid && sameDay(g.LastActivityAt.Time, now.AddDate(0, 0, -1)):
		g.CurrentStreak++
		bonus = streakMilestones[g.CurrentStreak]
	default:
		g.CurrentStreak = 1
		bonus = streakMilestones[g.CurrentStreak]
	}

	if g.CurrentStreak > g.LongestStreak {
		g.LongestStreak = g.CurrentStreak
	}
	g.XP += bonus
	g.LastActivityAt.Time, g.LastActivityAt.Valid = now, true

	return g, StreakResult{
		CurrentStreak:      g.CurrentStreak,
		LongestStreak:      g.LongestStreak,
		StreakBonusAwarded: bonus,
	}
}

func claimDailyBonus(g model.Gamification, now time.Time) (model.Gamification, BonusResult) {
	if g.LoginBonusAt.Valid && sameDay(g.LoginBonusAt.Time, now) {
		return g, BonusResult{AlreadyClaimed: true}
	}
	g.XP += DailyLoginXP
	g.LoginBonusAt.Time, g.LoginBonusAt.Valid = now, true
	return g, BonusResult{Success: true, XPAwarded: DailyLoginXP}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
