package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/careercraft/careercraft_service/internal/account"
	"github.com/careercraft/careercraft_service/internal/config"
	"github.com/careercraft/careercraft_service/internal/img"
	"github.com/careercraft/careercraft_service/internal/mail"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

const sessionTTL = 7 * 24 * time.Hour

type Registry struct {
	cfg    *config.Config
	db     *sqlx.DB
	rdb    *redis.Client
	repo   *account.Repo
	mailer *mail.Mailer
	oauth  *oauth2.Config
}

func NewRegistry(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, mailer *mail.Mailer) *Registry {
	r := &Registry{
		cfg: cfg, db: db, rdb: rdb,
		repo:   account.NewRepo(db),
		mailer: mailer,
	}
	if cfg.GoogleClientID != "" {
		r.oauth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	return r
}

// middleware.SessionProvider
func (r *Registry) Rdb() *redis.Client { return r.rdb }

func (r *Registry) CookieName() string { return r.cfg.SessionCookieName }

func (r *Registry) JWTSecret() []byte { return []byte(r.cfg.JWTSecret) }

func (r *Registry) Repo() *account.Repo { return r.repo }

// openSession stores a session in redis, records it in user_sessions, sets
// the cookie, and returns a bearer token for API clients.
func (r *Registry) openSession(c *fiber.Ctx, userID int64) (string, error) {
	sessID := randomHex(16)
	r.rdb.Set(c.Context(), "sess:"+sessID, userID, sessionTTL)
	r.saveSessionDB(sessID, userID, c.IP(), string(c.Request().Header.UserAgent()))

	c.Cookie(&fiber.Cookie{
		Name: r.cfg.SessionCookieName, Value: sessID,
		HTTPOnly: true, SameSite: "Lax", Secure: r.cfg.AppEnv != "dev",
		MaxAge: int(sessionTTL.Seconds()),
	})
	return r.issueToken(userID)
}

func (r *Registry) issueToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "careercraft",
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(r.cfg.JWTTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.JWTSecret())
}

func (r *Registry) saveSessionDB(sid string, userID int64, ip, ua string) {
	_, err := r.db.Exec(`INSERT INTO user_sessions(id,user_id,ip,user_agent) VALUES(?,?,?,?)`,
		sid, userID, ip, ua)
	if err != nil {
		log := telemetry.L().With().Int64("user_id", userID).Str("session_id", sid).Logger()
		log.Error().Err(err).Msg("save_session_failed")
	}
}

func (r *Registry) Logout(c *fiber.Ctx) error {
	sid := c.Cookies(r.cfg.SessionCookieName)
	if sid != "" {
		r.rdb.Del(c.Context(), "sess:"+sid)
		c.ClearCookie(r.cfg.SessionCookieName)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (r *Registry) Me(c *fiber.Ctx) error {
	uid := c.Locals("userID").(int64)
	acc, err := r.repo.ByID(c.Context(), uid)
	if err == account.ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "account not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	return c.JSON(acc)
}

type profileReq struct {
	Bio   string `json:"bio"`
	Theme string `json:"theme"`
}

func (r *Registry) UpdateProfile(c *fiber.Ctx) error {
	uid := c.Locals("userID").(int64)
	var req profileReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	switch req.Theme {
	case "light", "dark", "system":
	default:
		return c.Status(400).JSON(fiber.Map{"error": "invalid theme"})
	}
	if len(req.Bio) > 512 {
		return c.Status(400).JSON(fiber.Map{"error": "bio too long"})
	}
	if err := r.repo.UpdateProfile(c.Context(), uid, req.Bio, req.Theme); err != nil {
		return c.Status(500).SendString("db error")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (r *Registry) UploadAvatar(c *fiber.Ctx) error {
	uid := c.Locals("userID").(int64)
	fh, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "avatar file required"})
	}

	tmp := filepath.Join(os.TempDir(), uuid.New().String())
	if err := c.SaveFile(fh, tmp); err != nil {
		return c.Status(500).SendString("save fail")
	}
	defer os.Remove(tmp)

	save, err := img.SaveResizedJPEG(tmp, filepath.Join(r.cfg.StorageDir, "avatars"), r.cfg.AvatarMaxW)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "not a valid image"})
	}

	url := fmt.Sprintf("/storage/avatars/%s", filepath.Base(save.Path))
	if err := r.repo.SetAvatar(c.Context(), uid, url); err != nil {
		return c.Status(500).SendString("db error")
	}
	return c.JSON(fiber.Map{"avatar_url": url})
}

func randomHex(n int) string { b := make([]byte, n); rand.Read(b); return hex.EncodeToString(b) }
