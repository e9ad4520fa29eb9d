package quota

import (
	"github.com/gofiber/fiber/v2"

	"github.com/careercraft/careercraft_service/internal/plan"
)

type Handler struct {
	limiter *Limiter
}

func NewHandler(limiter *Limiter) *Handler { return &Handler{limiter: limiter} }

// Usage reports the caller's current counters next to the plan limits, after
// applying any pending window reset.
func (h *Handler) Usage(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(int64)

	acc, err := h.limiter.store.ByID(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if usage, reset := ResetIfWindowElapsed(acc.Usage, h.limiter.now()); reset {
		acc.Usage = usage
		if err := h.limiter.store.SaveUsageWindow(c.Context(), acc); err != nil {
			return c.Status(500).SendString("db error")
		}
	}

	p := plan.ByID(acc.Plan)
	resources := []plan.Resource{
		plan.ResourceDocuments, plan.ResourceQueries, plan.ResourceQuizzes,
		plan.ResourceDecks, plan.ResourceInterviews,
	}
	out := fiber.Map{"plan": acc.Plan}
	usage := fiber.Map{}
	limits := fiber.Map{}
	for _, res := range resources {
		usage[string(res)] = usedCounter(acc.Usage, res)
		limits[string(res)] = p.Quota(res)
	}
	out["usage"] = usage
	out["limits"] = limits
	return c.JSON(out)
}
