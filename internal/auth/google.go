package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"

	"github.com/careercraft/careercraft_service/internal/middleware"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

func (r *Registry) GoogleLogin(c *fiber.Ctx) error {
	if r.oauth == nil {
		return c.Status(404).JSON(fiber.Map{"error": "google login not configured"})
	}
	log := telemetry.L()
	log.Info().
		Str("req_id", c.Locals(middleware.ReqIDKey).(string)).
		Msg("google_login_redirect")
	state := randomHex(16)
	c.Cookie(&fiber.Cookie{Name: "oauth_state", Value: state, HTTPOnly: true, Secure: false, SameSite: "Lax"})
	url := r.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
	return c.Redirect(url, http.StatusFound)
}

func (r *Registry) GoogleCallback(c *fiber.Ctx) error {
	if r.oauth == nil {
		return c.Status(404).JSON(fiber.Map{"error": "google login not configured"})
	}
	rid := c.Locals(middleware.ReqIDKey).(string)
	state := c.Cookies("oauth_state")
	log := telemetry.L().With().Str("req_id", rid).Logger()
	if state == "" || state != c.Query("state") {
		log.Warn().Msg("oauth_state_mismatch")
		return c.Status(400).SendString("bad state")
	}
	tok, err := r.oauth.Exchange(context.Background(), c.Query("code"))
	if err != nil {
		log.Error().Err(err).Msg("oauth_exchange_failed")
		return c.Status(400).SendString("exchange failed")
	}

	// userinfo: https://www.googleapis.com/oauth2/v3/userinfo
	ui, err := fetchGoogleUserinfo(tok.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("oauth_userinfo_failed")
		return c.Status(502).SendString("userinfo failed")
	}

	if len(r.cfg.OAuthAllowedDomains) > 0 {
		ok := false
		for _, d := range r.cfg.OAuthAllowedDomains {
			if strings.HasSuffix(strings.ToLower(ui.Email), "@"+strings.ToLower(d)) {
				ok = true
				break
			}
		}
		if !ok {
			return c.Status(403).SendString("domain not allowed")
		}
	}

	log.Info().Str("email", ui.Email).Str("sub", ui.Sub).Msg("login_userinfo")

	userID, err := r.repo.UpsertOAuth(c.Context(), "google", ui.Sub, ui.Email, ui.Name, ui.Picture)
	if err != nil {
		log.Error().Err(err).Msg("oauth_upsert_failed")
		return c.Status(500).SendString("db error")
	}
	log.Info().Int64("user_id", userID).Msg("user_upserted")

	if _, err := r.openSession(c, userID); err != nil {
		return c.Status(500).SendString("session fail")
	}

	redir := c.Query("redirect")
	if redir == "" {
		redir = r.cfg.ClientURL + "/login"
	}
	return c.Redirect(redir, http.StatusFound)
}

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func fetchGoogleUserinfo(accessToken string) (*googleUserInfo, error) {
	req, _ := http.NewRequest("GET",
		"https://www.googleapis.com/oauth2/v3/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var ui googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, err
	}
	return &ui, nil
}
