package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/go-sql-driver/mysql"

	"github.com/careercraft/careercraft_service/internal/account"
	"github.com/careercraft/careercraft_service/internal/mail"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *Registry) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if len(req.Username) < 3 || len(req.Username) > 32 {
		return c.Status(400).JSON(fiber.Map{"error": "username must be 3-32 characters"})
	}
	if !strings.Contains(req.Email, "@") {
		return c.Status(400).JSON(fiber.Map{"error": "invalid email"})
	}
	if err := validatePassword(req.Password); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return c.Status(500).SendString("hash fail")
	}

	code := sixDigitCode()
	id, err := r.repo.Create(c.Context(), req.Username, req.Email, hash, code)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key
			return c.Status(409).JSON(fiber.Map{"error": "email or username already taken"})
		}
		return c.Status(500).SendString("db error")
	}

	r.mailer.SendAsync(req.Email, "Verify your CareerCraft account", mail.VerificationBody(req.Username, code))

	telemetry.L().Info().Int64("user_id", id).Msg("account_registered")
	return c.Status(201).JSON(fiber.Map{"id": id, "message": "verification code sent"})
}

type verifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (r *Registry) VerifyEmail(c *fiber.Ctx) error {
	var req verifyReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	acc, err := r.repo.ByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err == account.ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "account not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if acc.EmailVerified {
		return c.JSON(fiber.Map{"ok": true})
	}
	if !acc.VerifyCode.Valid || acc.VerifyCode.String != req.Code {
		return c.Status(400).JSON(fiber.Map{"error": "invalid code"})
	}
	if !acc.VerifyCodeExp.Valid || time.Now().After(acc.VerifyCodeExp.Time) {
		return c.Status(400).JSON(fiber.Map{"error": "code expired, request a new one"})
	}
	if err := r.repo.MarkVerified(c.Context(), acc.ID); err != nil {
		return c.Status(500).SendString("db error")
	}
	r.mailer.SendAsync(acc.Email, "Welcome to CareerCraft", mail.WelcomeBody(acc.Username))
	return c.JSON(fiber.Map{"ok": true})
}

func (r *Registry) ResendCode(c *fiber.Ctx) error {
	var req verifyReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	acc, err := r.repo.ByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err == account.ErrNotFound {
		// do not leak which emails exist
		return c.JSON(fiber.Map{"ok": true})
	}
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if acc.EmailVerified {
		return c.JSON(fiber.Map{"ok": true})
	}
	code := sixDigitCode()
	if err := r.repo.SetVerifyCode(c.Context(), acc.ID, code); err != nil {
		return c.Status(500).SendString("db error")
	}
	r.mailer.SendAsync(acc.Email, "Verify your CareerCraft account", mail.VerificationBody(acc.Username, code))
	return c.JSON(fiber.Map{"ok": true})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *Registry) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	acc, err := r.repo.ByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err == account.ErrNotFound {
		return c.Status(401).JSON(fiber.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if !acc.PasswordHash.Valid || !checkPassword(acc.PasswordHash.String, req.Password) {
		return c.Status(401).JSON(fiber.Map{"error": "invalid credentials"})
	}
	if !acc.EmailVerified {
		return c.Status(403).JSON(fiber.Map{"error": "email not verified"})
	}

	token, err := r.openSession(c, acc.ID)
	if err != nil {
		return c.Status(500).SendString("session fail")
	}
	r.repo.TouchLogin(c.Context(), acc.ID)

	telemetry.L().Info().Int64("user_id", acc.ID).Msg("login_ok")
	return c.JSON(fiber.Map{"token": token, "user": acc})
}

type forgotReq struct {
	Email string `json:"email"`
}

func (r *Registry) ForgotPassword(c *fiber.Ctx) error {
	var req forgotReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	acc, err := r.repo.ByEmail(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err == account.ErrNotFound {
		return c.JSON(fiber.Map{"ok": true})
	}
	if err != nil {
		return c.Status(500).SendString("db error")
	}

	token := randomHex(32)
	if err := r.repo.SetResetToken(c.Context(), acc.ID, token); err != nil {
		return c.Status(500).SendString("db error")
	}
	link := r.cfg.ClientURL + "/reset-password?token=" + token
	r.mailer.SendAsync(acc.Email, "Reset your CareerCraft password", mail.ResetBody(acc.Username, link))
	return c.JSON(fiber.Map{"ok": true})
}

type resetReq struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r *Registry) ResetPassword(c *fiber.Ctx) error {
	var req resetReq
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := validatePassword(req.Password); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	acc, err := r.repo.ByResetToken(c.Context(), req.Token)
	if err == account.ErrNotFound {
		return c.Status(400).JSON(fiber.Map{"error": "invalid or expired token"})
	}
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if !acc.ResetTokenExp.Valid || time.Now().After(acc.ResetTokenExp.Time) {
		return c.Status(400).JSON(fiber.Map{"error": "invalid or expired token"})
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return c.Status(500).SendString("hash fail")
	}
	if err := r.repo.UpdatePassword(c.Context(), acc.ID, hash); err != nil {
		return c.Status(500).SendString("db error")
	}
	telemetry.L().Info().Int64("user_id", acc.ID).Msg("password_reset")
	return c.JSON(fiber.Map{"ok": true})
}
