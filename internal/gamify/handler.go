package gamify

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/careercraft/careercraft_service/internal/account"
	"github.com/careercraft/careercraft_service/internal/ws"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler { return &Handler{ledger: ledger} }

// DailyBonus claims the once-per-day login XP.
func (h *Handler) DailyBonus(c *fiber.Ctx) error {
	userID := mustUserID(c)
	res, err := h.ledger.ClaimDailyBonus(c.Context(), userID)
	if err == account.ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "account not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if res.Success {
		ws.BroadcastXPAwarded(userID, int(res.XPAwarded), 0, "daily_login")
	}
	return c.JSON(res)
}

func (h *Handler) Rank(c *fiber.Ctx) error {
	userID := mustUserID(c)
	rank, err := h.ledger.Rank(c.Context(), userID)
	if err == account.ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "account not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	return c.JSON(fiber.Map{"rank": rank})
}

func (h *Handler) Leaderboard(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "25"))
	rows, err := h.ledger.Leaderboard(c.Context(), limit)
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if rows == nil {
		rows = []account.LeaderboardRow{}
	}
	return c.JSON(rows)
}

func mustUserID(c *fiber.Ctx) int64 {
	uid, ok := c.Locals("userID").(int64)
	if !ok {
		return 0
	}
	return uid
}
