package study

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/careercraft/careercraft_service/internal/gamify"
	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/plan"
)

const maxInterviewTurns = 40

type startInterviewReq struct {
	Role string `json:"role"`
}

// StartInterview opens a mock interview session for a target role. The
// monthly allowance is consumed at start, not at finish.
func (h *Handler) StartInterview(c *fiber.Ctx) error {
	userID := mustUserID(c)
	log := h.log(c, userID)

	var req startInterviewReq
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Role) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "role required"})
	}
	if len(req.Role) > 120 {
		return c.Status(400).JSON(fiber.Map{"error": "role too long"})
	}

	if !h.checkQuota(c, userID, plan.ResourceInterviews) {
		return nil
	}

	comp, err := h.svc.OpenInterview(c.Context(), req.Role)
	if err != nil {
		log.Error().Err(err).Msg("interview_open_failed")
		return c.Status(502).JSON(fiber.Map{"error": "interviewer unavailable"})
	}

	transcript := []model.InterviewTurn{{Role: "interviewer", Content: comp.Text}}
	raw, _ := json.Marshal(transcript)
	id, err := h.repo.InsertInterview(c.Context(), &model.InterviewSession{
		UserID: userID, Role: req.Role, Status: model.InterviewActive, TranscriptJSON: string(raw),
	})
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if err := h.limiter.Increment(c.Context(), userID, plan.ResourceInterviews); err != nil {
		log.Error().Err(err).Msg("usage_increment_failed")
	}

	log.Info().Int64("interview_id", id).Str("role", req.Role).Msg("interview_started")
	return c.Status(201).JSON(fiber.Map{
		"id": id, "role": req.Role, "question": comp.Text, "degraded": comp.Degraded,
	})
}

type answerReq struct {
	Answer string `json:"answer"`
}

func (h *Handler) AnswerInterview(c *fiber.Ctx) error {
	userID := mustUserID(c)
	log := h.log(c, userID)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)

	sess, err := h.repo.InterviewByID(c.Context(), id, userID)
	if err == ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if sess.Status != model.InterviewActive {
		return c.Status(409).JSON(fiber.Map{"error": "interview already finished"})
	}

	var req answerReq
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Answer) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "answer required"})
	}

	var transcript []model.InterviewTurn
	if err := json.Unmarshal([]byte(sess.TranscriptJSON), &transcript); err != nil {
		return c.Status(500).SendString("corrupt transcript")
	}
	if len(transcript) >= maxInterviewTurns {
		return c.Status(409).JSON(fiber.Map{"error": "interview turn limit reached, finish the session"})
	}

	comp, err := h.svc.NextInterviewTurn(c.Context(), sess.Role, transcript, req.Answer)
	if err != nil {
		log.Error().Err(err).Msg("interview_turn_failed")
		return c.Status(502).JSON(fiber.Map{"error": "interviewer unavailable"})
	}

	transcript = append(transcript,
		model.InterviewTurn{Role: "candidate", Content: req.Answer},
		model.InterviewTurn{Role: "interviewer", Content: comp.Text},
	)
	raw, _ := json.Marshal(transcript)
	if err := h.repo.SaveTranscript(c.Context(), sess.ID, string(raw)); err != nil {
		return c.Status(500).SendString("db fail")
	}

	return c.JSON(fiber.Map{"question": comp.Text, "degraded": comp.Degraded, "turns": len(transcript)})
}

// FinishInterview closes the session, generates feedback, and pays out the
// interview XP.
func (h *Handler) FinishInterview(c *fiber.Ctx) error {
	userID := mustUserID(c)
	log := h.log(c, userID)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)

	sess, err := h.repo.InterviewByID(c.Context(), id, userID)
	if err == ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if sess.Status != model.InterviewActive {
		return c.Status(409).JSON(fiber.Map{"error": "interview already finished"})
	}

	var transcript []model.InterviewTurn
	if err := json.Unmarshal([]byte(sess.TranscriptJSON), &transcript); err != nil {
		return c.Status(500).SendString("corrupt transcript")
	}

	comp, err := h.svc.InterviewFeedback(c.Context(), sess.Role, transcript)
	if err != nil {
		log.Error().Err(err).Msg("interview_feedback_failed")
		return c.Status(502).JSON(fiber.Map{"error": "interviewer unavailable"})
	}

	raw, _ := json.Marshal(transcript)
	if err := h.repo.FinishInterview(c.Context(), sess.ID, string(raw), comp.Text); err != nil {
		return c.Status(500).SendString("db fail")
	}

	award := h.awardAction(c, userID, gamify.XPInterview, "interview_finished")

	log.Info().Int64("interview_id", sess.ID).Int("turns", len(transcript)).Msg("interview_finished")
	return c.JSON(fiber.Map{
		"feedback": comp.Text, "degraded": comp.Degraded,
		"xpAwarded": award.XPAwarded, "bonusXP": award.BonusXP,
	})
}

func (h *Handler) ListInterviews(c *fiber.Ctx) error {
	userID := mustUserID(c)
	list, err := h.repo.ListInterviews(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if list == nil {
		list = []model.InterviewSession{}
	}
	return c.JSON(list)
}

func (h *Handler) GetInterview(c *fiber.Ctx) error {
	userID := mustUserID(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	sess, err := h.repo.InterviewByID(c.Context(), id, userID)
	if err == ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	var transcript []model.InterviewTurn
	_ = json.Unmarshal([]byte(sess.TranscriptJSON), &transcript)
	return c.JSON(fiber.Map{
		"id": sess.ID, "role": sess.Role, "status": sess.Status,
		"transcript": transcript, "feedback": sess.Feedback,
		"started_at": sess.StartedAt, "ended_at": sess.EndedAt,
	})
}
