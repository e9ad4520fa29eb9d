package model

import (
	"database/sql"
	"time"
)

// Account is one row per registered user. Gamification and usage counters
// live on the same row so every update is a single-row write.
type Account struct {
	ID           int64          `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	Email        string         `db:"email" json:"email"`
	PasswordHash sql.NullString `db:"password_hash" json:"-"`
	Provider     sql.NullString `db:"provider" json:"-"`
	ProviderID   sql.NullString `db:"provider_id" json:"-"`

	EmailVerified   bool           `db:"email_verified" json:"email_verified"`
	VerifyCode      sql.NullString `db:"verify_code" json:"-"`
	VerifyCodeExp   sql.NullTime   `db:"verify_code_expires_at" json:"-"`
	ResetToken      sql.NullString `db:"reset_token" json:"-"`
	ResetTokenExp   sql.NullTime   `db:"reset_token_expires_at" json:"-"`

	Bio       string `db:"bio" json:"bio"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
	Theme     string `db:"theme" json:"theme"`

	Gamification
	Subscription
	Usage

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Gamification counters. XP never decrements.
type Gamification struct {
	XP             int64        `db:"xp" json:"xp"`
	CurrentStreak  int          `db:"current_streak" json:"current_streak"`
	LongestStreak  int          `db:"longest_streak" json:"longest_streak"`
	LastActivityAt sql.NullTime `db:"last_activity_at" json:"last_activity_at"`
	LastLoginAt    sql.NullTime `db:"last_login_at" json:"last_login_at"`
	// LoginBonusAt holds the calendar day of the last daily-bonus claim;
	// "already claimed today" means this date is today.
	LoginBonusAt sql.NullTime `db:"login_bonus_at" json:"-"`
	ChatXPToday  int          `db:"chat_xp_today" json:"chat_xp_today"`
	ChatXPDate   sql.NullTime `db:"chat_xp_date" json:"-"`
}

type Subscription struct {
	Plan                  string         `db:"plan" json:"plan"`
	GatewayOrderID        sql.NullString `db:"gateway_order_id" json:"-"`
	GatewaySubscriptionID sql.NullString `db:"gateway_subscription_id" json:"-"`
	GatewayCustomerID     sql.NullString `db:"gateway_customer_id" json:"-"`
	SubscriptionStatus    string         `db:"subscription_status" json:"subscription_status"`
	PeriodStart           sql.NullTime   `db:"period_start" json:"period_start"`
	PeriodEnd             sql.NullTime   `db:"period_end" json:"period_end"`
	CancelAtPeriodEnd     bool           `db:"cancel_at_period_end" json:"cancel_at_period_end"`
}

// Subscription statuses.
const (
	SubActive   = "active"
	SubTrialing = "trialing"
	SubPastDue  = "past_due"
	SubCanceled = "cancelled"
	SubExpired  = "expired"
)

// Usage counters gated by the limiter. Monthly counters reset when
// WindowStartedAt falls in an earlier calendar month; QuizzesToday resets
// when LastQuizAt falls on an earlier calendar day.
type Usage struct {
	DocumentsUploaded   int          `db:"documents_uploaded" json:"documents_uploaded"`
	QueriesThisPeriod   int          `db:"queries_this_period" json:"queries_this_period"`
	QuizzesToday        int          `db:"quizzes_today" json:"quizzes_today"`
	LastQuizAt          sql.NullTime `db:"last_quiz_at" json:"-"`
	DecksCreated        int          `db:"decks_created" json:"decks_created"`
	InterviewsThisMonth int          `db:"interviews_this_month" json:"interviews_this_month"`
	WindowStartedAt     time.Time    `db:"usage_window_started_at" json:"-"`
}
