package gamify

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/careercraft/careercraft_service/internal/account"
	"github.com/careercraft/careercraft_service/internal/model"
)

type fakeStore struct {
	accounts map[int64]*model.Account
}

func (f *fakeStore) ByID(_ context.Context, id int64) (*model.Account, error) {
	acc, ok := f.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *acc
	return &cp, nil
}

func (f *fakeStore) SaveGamification(_ context.Context, acc *model.Account) error {
	f.accounts[acc.ID].Gamification = acc.Gamification
	return nil
}

func (f *fakeStore) CountRicher(_ context.Context, xp int64) (int, error) {
	n := 0
	for _, acc := range f.accounts {
		if acc.XP > xp {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) TopByXP(_ context.Context, limit int) ([]account.LeaderboardRow, error) {
	return nil, nil
}

func newLedgerAt(now time.Time, accounts ...*model.Account) (*Ledger, *fakeStore) {
	st := &fakeStore{accounts: map[int64]*model.Account{}}
	for _, acc := range accounts {
		st.accounts[acc.ID] = acc
	}
	l := NewLedger(st)
	l.now = func() time.Time { return now }
	return l, st
}

func at(day int) time.Time {
	return time.Date(2026, 5, day, 14, 0, 0, 0, time.UTC)
}

func TestAwardXP(t *testing.T) {
	acc := &model.Account{ID: 1, Gamification: model.Gamification{XP: 90}}
	l, st := newLedgerAt(at(1), acc)

	res, err := l.AwardXP(context.Background(), 1, XPUpload, "document_upload")
	if err != nil {
		t.Fatal(err)
	}
	if res.XPAwarded != XPUpload || res.TotalXP != 100 {
		t.Fatalf("got %+v", res)
	}
	if st.accounts[1].XP != 100 {
		t.Fatalf("xp not persisted: %d", st.accounts[1].XP)
	}
}

func TestAwardXPNotFound(t *testing.T) {
	l, _ := newLedgerAt(at(1))
	if _, err := l.AwardXP(context.Background(), 42, 10, "x"); err != account.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestStreakIdempotentSameDay(t *testing.T) {
	acc := &model.Account{ID: 1}
	l, _ := newLedgerAt(at(1), acc)

	first, err := l.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.CurrentStreak != 1 || second.CurrentStreak != 1 {
		t.Fatalf("streaks: first=%d second=%d, want 1/1", first.CurrentStreak, second.CurrentStreak)
	}
	if second.LongestStreak != first.LongestStreak {
		t.Fatalf("same-day repeat changed longest streak")
	}
}

func TestStreakContinuityAndReset(t *testing.T) {
	acc := &model.Account{ID: 1}
	l, _ := newLedgerAt(at(1), acc)

	l.RecordActivity(context.Background(), 1)
	l.now = func() time.Time { return at(2) }
	res, _ := l.RecordActivity(context.Background(), 1)
	if res.CurrentStreak != 2 {
		t.Fatalf("consecutive day should increment, got %d", res.CurrentStreak)
	}

	// Skip a day: streak resets to one, longest survives.
	l.now = func() time.Time { return at(4) }
	res, _ = l.RecordActivity(context.Background(), 1)
	if res.CurrentStreak != 1 {
		t.Fatalf("gap should reset streak to 1, got %d", res.CurrentStreak)
	}
	if res.LongestStreak != 2 {
		t.Fatalf("longest streak should stay 2, got %d", res.LongestStreak)
	}
}

func TestStreakMilestoneFiresOnTransitionOnly(t *testing.T) {
	acc := &model.Account{
		ID: 1,
		Gamification: model.Gamification{
			CurrentStreak:  6,
			LongestStreak:  6,
			LastActivityAt: sql.NullTime{Time: at(9), Valid: true},
		},
	}
	l, st := newLedgerAt(at(10), acc)

	res, err := l.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.CurrentStreak != 7 {
		t.Fatalf("streak=%d, want 7", res.CurrentStreak)
	}
	if res.StreakBonusAwarded != streakMilestones[7] {
		t.Fatalf("bonus=%d, want %d", res.StreakBonusAwarded, streakMilestones[7])
	}
	if st.accounts[1].XP != streakMilestones[7] {
		t.Fatalf("bonus xp not persisted: %d", st.accounts[1].XP)
	}

	// Same-day repeat must not re-grant the milestone.
	res, err = l.RecordActivity(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.StreakBonusAwarded != 0 {
		t.Fatalf("milestone re-granted on idempotent call: %d", res.StreakBonusAwarded)
	}
	if st.accounts[1].XP != streakMilestones[7] {
		t.Fatalf("xp changed on idempotent call: %d", st.accounts[1].XP)
	}
}

func TestAwardActionXPCarriesMilestoneBonus(t *testing.T) {
	acc := &model.Account{
		ID: 1,
		Gamification: model.Gamification{
			CurrentStreak:  6,
			LongestStreak:  6,
			LastActivityAt: sql.NullTime{Time: at(9), Valid: true},
		},
	}
	l, st := newLedgerAt(at(10), acc)

	award, streak, err := l.AwardActionXP(context.Background(), 1, XPUpload, "document_upload")
	if err != nil {
		t.Fatal(err)
	}
	if award.XPAwarded != XPUpload {
		t.Fatalf("xp awarded %d, want %d", award.XPAwarded, XPUpload)
	}
	if award.BonusXP != streakMilestones[7] {
		t.Fatalf("bonus %d, want %d", award.BonusXP, streakMilestones[7])
	}
	want := int64(XPUpload) + streakMilestones[7]
	if award.TotalXP != want {
		t.Fatalf("total %d, want %d", award.TotalXP, want)
	}
	if streak.CurrentStreak != 7 || streak.StreakBonusAwarded != streakMilestones[7] {
		t.Fatalf("streak %+v", streak)
	}
	if st.accounts[1].XP != want {
		t.Fatalf("persisted xp %d, want %d", st.accounts[1].XP, want)
	}

	// Second action the same day: plain XP, no repeated bonus.
	award, _, err = l.AwardActionXP(context.Background(), 1, XPQuizCompleted, "quiz_completed")
	if err != nil {
		t.Fatal(err)
	}
	if award.BonusXP != 0 {
		t.Fatalf("same-day bonus re-granted: %d", award.BonusXP)
	}
	if award.TotalXP != want+XPQuizCompleted {
		t.Fatalf("total %d, want %d", award.TotalXP, want+XPQuizCompleted)
	}
}

func TestAwardChatActionXPCountsStreakAndCap(t *testing.T) {
	acc := &model.Account{
		ID: 1,
		Gamification: model.Gamification{
			ChatXPToday: ChatXPDailyCap - XPChat,
			ChatXPDate:  sql.NullTime{Time: at(1), Valid: true},
		},
	}
	l, st := newLedgerAt(at(1), acc)

	award, streak, err := l.AwardChatActionXP(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if award.XPAwarded != XPChat {
		t.Fatalf("xp awarded %d, want %d", award.XPAwarded, XPChat)
	}
	if streak.CurrentStreak != 1 {
		t.Fatalf("chat should count toward streak, got %d", streak.CurrentStreak)
	}

	// Cap reached: grant drops to zero but the day still counts.
	award, streak, err = l.AwardChatActionXP(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if award.XPAwarded != 0 {
		t.Fatalf("capped grant %d, want 0", award.XPAwarded)
	}
	if streak.CurrentStreak != 1 {
		t.Fatalf("streak %d, want 1", streak.CurrentStreak)
	}
	if st.accounts[1].XP != XPChat {
		t.Fatalf("persisted xp %d, want %d", st.accounts[1].XP, XPChat)
	}
}

func TestChatXPDailyCap(t *testing.T) {
	acc := &model.Account{ID: 1}
	l, st := newLedgerAt(at(1), acc)

	// Cap divided by the per-interaction grant: every award up to the cap
	// grants in full, the next grants zero.
	full := ChatXPDailyCap / XPChat
	for i := 0; i < full; i++ {
		res, err := l.AwardChatXP(context.Background(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if res.XPAwarded != XPChat {
			t.Fatalf("award %d granted %d, want %d", i, res.XPAwarded, XPChat)
		}
	}
	res, err := l.AwardChatXP(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.XPAwarded != 0 {
		t.Fatalf("capped award granted %d, want 0", res.XPAwarded)
	}
	if st.accounts[1].XP != ChatXPDailyCap {
		t.Fatalf("total xp %d, want %d", st.accounts[1].XP, ChatXPDailyCap)
	}

	// New calendar day: accumulator resets.
	l.now = func() time.Time { return at(2) }
	res, err = l.AwardChatXP(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.XPAwarded != XPChat {
		t.Fatalf("post-rollover award granted %d, want %d", res.XPAwarded, XPChat)
	}
}

func TestDailyBonusExactlyOncePerDay(t *testing.T) {
	acc := &model.Account{ID: 1}
	l, _ := newLedgerAt(at(1), acc)

	first, err := l.ClaimDailyBonus(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Success || first.XPAwarded != DailyLoginXP || first.AlreadyClaimed {
		t.Fatalf("first claim: %+v", first)
	}

	second, err := l.ClaimDailyBonus(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if second.Success || second.XPAwarded != 0 || !second.AlreadyClaimed {
		t.Fatalf("second claim same day: %+v", second)
	}

	l.now = func() time.Time { return at(2) }
	third, err := l.ClaimDailyBonus(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !third.Success {
		t.Fatalf("next-day claim should succeed: %+v", third)
	}
}

func TestRankCountsStrictlyGreater(t *testing.T) {
	accounts := []*model.Account{
		{ID: 1, Gamification: model.Gamification{XP: 100}},
		{ID: 2, Gamification: model.Gamification{XP: 50}},
		{ID: 3, Gamification: model.Gamification{XP: 150}},
		{ID: 4, Gamification: model.Gamification{XP: 100}},
	}
	l, _ := newLedgerAt(at(1), accounts...)

	rank, err := l.Rank(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if rank != 2 {
		t.Fatalf("rank for xp=100 among {50,150,100}: got %d, want 2", rank)
	}

	// The tied account computes the same rank independently.
	rank, _ = l.Rank(context.Background(), 4)
	if rank != 2 {
		t.Fatalf("tied account rank: got %d, want 2", rank)
	}

	// Top account, even when tied, ranks 1.
	rank, _ = l.Rank(context.Background(), 3)
	if rank != 1 {
		t.Fatalf("top rank: got %d, want 1", rank)
	}
}
