package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/plan"
)

// ErrNotFound is returned when the referenced account does not exist.
var ErrNotFound = errors.New("account not found")

type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

const accountCols = `id, username, email, password_hash, provider, provider_id,
	email_verified, verify_code, verify_code_expires_at, reset_token, reset_token_expires_at,
	bio, avatar_url, theme,
	xp, current_streak, longest_streak, last_activity_at, last_login_at, login_bonus_at,
	chat_xp_today, chat_xp_date,
	plan, gateway_order_id, gateway_subscription_id, gateway_customer_id,
	subscription_status, period_start, period_end, cancel_at_period_end,
	documents_uploaded, queries_this_period, quizzes_today, last_quiz_at,
	decks_created, interviews_this_month, usage_window_started_at,
	created_at, updated_at`

func (r *Repo) get(ctx context.Context, where string, args ...any) (*model.Account, error) {
	var acc model.Account
	err := r.db.GetContext(ctx, &acc, `SELECT `+accountCols+` FROM users WHERE `+where+` LIMIT 1`, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *Repo) ByID(ctx context.Context, id int64) (*model.Account, error) {
	return r.get(ctx, `id=?`, id)
}

func (r *Repo) ByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.get(ctx, `email=?`, email)
}

func (r *Repo) ByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.get(ctx, `username=?`, username)
}

func (r *Repo) ByResetToken(ctx context.Context, token string) (*model.Account, error) {
	return r.get(ctx, `reset_token=?`, token)
}

// Create inserts a new unverified password account on the free plan.
func (r *Repo) Create(ctx context.Context, username, email, passwordHash, verifyCode string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users
			(username, email, password_hash, email_verified, verify_code, verify_code_expires_at,
			 plan, subscription_status, usage_window_started_at, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, DATE_ADD(NOW(), INTERVAL 15 MINUTE), ?, ?, NOW(), NOW(), NOW())`,
		username, email, passwordHash, verifyCode, plan.Free, model.SubActive)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpsertOAuth creates or refreshes an account coming from an OAuth provider.
// OAuth accounts are verified by construction.
func (r *Repo) UpsertOAuth(ctx context.Context, provider, providerID, email, name, picture string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users
			(username, email, provider, provider_id, email_verified, avatar_url,
			 plan, subscription_status, usage_window_started_at, last_login_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, NOW(), NOW(), NOW(), NOW())
		ON DUPLICATE KEY UPDATE
			email = VALUES(email),
			avatar_url = VALUES(avatar_url),
			last_login_at = NOW(),
			updated_at = NOW(),
			id = LAST_INSERT_ID(id)`,
		name, email, provider, providerID, picture, plan.Free, model.SubActive)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil || id == 0 {
		var fetched int64
		if e := r.db.GetContext(ctx, &fetched,
			`SELECT id FROM users WHERE provider=? AND provider_id=? LIMIT 1`, provider, providerID); e != nil {
			return 0, e
		}
		return fetched, nil
	}
	return id, nil
}

func (r *Repo) TouchLogin(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at=NOW(), updated_at=NOW() WHERE id=?`, id)
	return err
}

func (r *Repo) MarkVerified(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET email_verified=1, verify_code=NULL, verify_code_expires_at=NULL, updated_at=NOW()
		WHERE id=?`, id)
	return err
}

func (r *Repo) SetVerifyCode(ctx context.Context, id int64, code string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET verify_code=?, verify_code_expires_at=DATE_ADD(NOW(), INTERVAL 15 MINUTE), updated_at=NOW()
		WHERE id=?`, code, id)
	return err
}

func (r *Repo) SetResetToken(ctx context.Context, id int64, token string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET reset_token=?, reset_token_expires_at=DATE_ADD(NOW(), INTERVAL 1 HOUR), updated_at=NOW()
		WHERE id=?`, token, id)
	return err
}

func (r *Repo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash=?, reset_token=NULL, reset_token_expires_at=NULL, updated_at=NOW()
		WHERE id=?`, passwordHash, id)
	return err
}

func (r *Repo) UpdateProfile(ctx context.Context, id int64, bio, theme string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET bio=?, theme=?, updated_at=NOW() WHERE id=?`, bio, theme, id)
	return err
}

func (r *Repo) SetAvatar(ctx context.Context, id int64, url string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_url=?, updated_at=NOW() WHERE id=?`, url, id)
	return err
}

// SaveUsageWindow persists the window-reset fields after a lazy reset. The
// consumed counters themselves are only written here when a reset zeroed
// them; increments go through IncrementUsage.
func (r *Repo) SaveUsageWindow(ctx context.Context, acc *model.Account) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			queries_this_period=?, quizzes_today=?, last_quiz_at=?,
			interviews_this_month=?, usage_window_started_at=?, updated_at=NOW()
		WHERE id=?`,
		acc.QueriesThisPeriod, acc.QuizzesToday, acc.LastQuizAt,
		acc.InterviewsThisMonth, acc.WindowStartedAt, acc.ID)
	return err
}

// usageColumns maps resources to counter columns; never derived from user
// input anywhere else.
var usageColumns = map[plan.Resource]string{
	plan.ResourceDocuments:  "documents_uploaded",
	plan.ResourceQueries:    "queries_this_period",
	plan.ResourceQuizzes:    "quizzes_today",
	plan.ResourceDecks:      "decks_created",
	plan.ResourceInterviews: "interviews_this_month",
}

// IncrementUsage bumps one counter by one. Quiz increments also stamp
// last_quiz_at so the next check can detect day rollover.
func (r *Repo) IncrementUsage(ctx context.Context, id int64, res plan.Resource) error {
	col, ok := usageColumns[res]
	if !ok {
		return errors.New("unknown usage resource: " + string(res))
	}
	q := `UPDATE users SET ` + col + `=` + col + `+1, updated_at=NOW() WHERE id=?`
	if res == plan.ResourceQuizzes {
		q = `UPDATE users SET quizzes_today=quizzes_today+1, last_quiz_at=NOW(), updated_at=NOW() WHERE id=?`
	}
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveGamification writes back the gamification fields wholesale.
func (r *Repo) SaveGamification(ctx context.Context, acc *model.Account) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			xp=?, current_streak=?, longest_streak=?, last_activity_at=?,
			login_bonus_at=?, chat_xp_today=?, chat_xp_date=?, updated_at=NOW()
		WHERE id=?`,
		acc.XP, acc.CurrentStreak, acc.LongestStreak, acc.LastActivityAt,
		acc.LoginBonusAt, acc.ChatXPToday, acc.ChatXPDate, acc.ID)
	return err
}

// CountRicher counts accounts with strictly greater XP. Rank = 1 + count.
func (r *Repo) CountRicher(ctx context.Context, xp int64) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE xp > ?`, xp)
	return n, err
}

type LeaderboardRow struct {
	Username      string `db:"username" json:"username"`
	AvatarURL     string `db:"avatar_url" json:"avatar_url"`
	XP            int64  `db:"xp" json:"xp"`
	CurrentStreak int    `db:"current_streak" json:"current_streak"`
}

func (r *Repo) TopByXP(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT username, avatar_url, xp, current_streak
		FROM users ORDER BY xp DESC, id ASC LIMIT ?`, limit)
	return rows, err
}

// SaveSubscription writes back the subscription fields wholesale.
func (r *Repo) SaveSubscription(ctx context.Context, acc *model.Account) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			plan=?, gateway_order_id=?, gateway_subscription_id=?, gateway_customer_id=?,
			subscription_status=?, period_start=?, period_end=?, cancel_at_period_end=?, updated_at=NOW()
		WHERE id=?`,
		acc.Plan, acc.GatewayOrderID, acc.GatewaySubscriptionID, acc.GatewayCustomerID,
		acc.SubscriptionStatus, acc.PeriodStart, acc.PeriodEnd, acc.CancelAtPeriodEnd, acc.ID)
	return err
}
