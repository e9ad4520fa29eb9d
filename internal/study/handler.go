package study

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/careercraft/careercraft_service/internal/docs"
	"github.com/careercraft/careercraft_service/internal/gamify"
	"github.com/careercraft/careercraft_service/internal/middleware"
	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/plan"
	"github.com/careercraft/careercraft_service/internal/quota"
	"github.com/careercraft/careercraft_service/internal/telemetry"
	"github.com/careercraft/careercraft_service/internal/ws"
)

const (
	defaultCardCount     = 15
	maxCardCount         = 40
	defaultQuestionCount = 10
	maxQuestionCount     = 25
)

type Handler struct {
	repo    *Repo
	docRepo *docs.Repo
	svc     *Service
	limiter *quota.Limiter
	ledger  *gamify.Ledger
}

func NewHandler(repo *Repo, docRepo *docs.Repo, svc *Service, limiter *quota.Limiter, ledger *gamify.Ledger) *Handler {
	return &Handler{repo: repo, docRepo: docRepo, svc: svc, limiter: limiter, ledger: ledger}
}

func (h *Handler) log(c *fiber.Ctx, userID int64) zerolog.Logger {
	rid, _ := c.Locals(middleware.ReqIDKey).(string)
	return telemetry.L().With().Str("req_id", rid).Int64("user_id", userID).Logger()
}

// readyDoc loads the caller's document and requires extracted text. On
// failure the response is written and ok is false.
func (h *Handler) readyDoc(c *fiber.Ctx, userID int64) (*model.Document, bool) {
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	doc, err := h.docRepo.Owned(c.Context(), id, userID)
	if err == docs.ErrNotFound {
		_ = c.Status(404).JSON(fiber.Map{"error": "document not found"})
		return nil, false
	}
	if err != nil {
		_ = c.Status(500).SendString("db fail")
		return nil, false
	}
	if doc.Status != model.DocReady || !doc.ExtractedText.Valid {
		_ = c.Status(409).JSON(fiber.Map{"error": "document still processing"})
		return nil, false
	}
	return doc, true
}

func (h *Handler) checkQuota(c *fiber.Ctx, userID int64, res plan.Resource) bool {
	denial, err := h.limiter.Check(c.Context(), userID, res)
	if err != nil {
		_ = c.Status(500).SendString("db error")
		return false
	}
	if denial != nil {
		_ = c.Status(403).JSON(denial)
		return false
	}
	return true
}

type generateReq struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func (h *Handler) CreateDeck(c *fiber.Ctx) error {
	userID := mustUserID(c)
	log := h.log(c, userID)

	doc, ok := h.readyDoc(c, userID)
	if !ok {
		return nil
	}
	if !h.checkQuota(c, userID, plan.ResourceDecks) {
		return nil
	}

	var req generateReq
	_ = c.BodyParser(&req)
	count := clampCount(req.Count, defaultCardCount, maxCardCount)

	cards, err := h.svc.GenerateFlashcards(c.Context(), doc.ExtractedText.String, count)
	if err != nil {
		log.Error().Err(err).Msg("deck_generate_failed")
		return c.Status(502).JSON(fiber.Map{"error": "generation unavailable, try again shortly"})
	}

	deck := &model.FlashcardDeck{
		UserID:     userID,
		DocumentID: doc.ID,
		Title:      orDefault(req.Title, doc.Title+" — flashcards"),
		CardCount:  len(cards),
	}
	raw, _ := json.Marshal(cards)
	deck.CardsJSON = string(raw)

	id, err := h.repo.InsertDeck(c.Context(), deck)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if err := h.limiter.Increment(c.Context(), userID, plan.ResourceDecks); err != nil {
		log.Error().Err(err).Msg("usage_increment_failed")
	}
	award := h.awardAction(c, userID, gamify.XPDeckCreated, "deck_created")
	ws.BroadcastDeckReady(userID, id, len(cards))

	log.Info().Int64("deck_id", id).Int("cards", len(cards)).Msg("deck_created")
	return c.Status(201).JSON(fiber.Map{
		"id": id, "title": deck.Title, "cards": cards,
		"xpAwarded": award.XPAwarded, "bonusXP": award.BonusXP,
	})
}

func (h *Handler) ListDecks(c *fiber.Ctx) error {
	userID := mustUserID(c)
	list, err := h.repo.ListDecks(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if list == nil {
		list = []model.FlashcardDeck{}
	}
	return c.JSON(list)
}

func (h *Handler) GetDeck(c *fiber.Ctx) error {
	userID := mustUserID(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	deck, err := h.repo.DeckByID(c.Context(), id, userID)
	if err == ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	var cards []model.Flashcard
	_ = json.Unmarshal([]byte(deck.CardsJSON), &cards)
	return c.JSON(fiber.Map{
		"id": deck.ID, "document_id": deck.DocumentID, "title": deck.Title,
		"cards": cards, "created_at": deck.CreatedAt,
	})
}

func (h *Handler) CreateQuiz(c *fiber.Ctx) error {
	userID := mustUserID(c)
	log := h.log(c, userID)

	doc, ok := h.readyDoc(c, userID)
	if !ok {
		return nil
	}
	if !h.checkQuota(c, userID, plan.ResourceQuizzes) {
		return nil
	}

	var req generateReq
	_ = c.BodyParser(&req)
	count := clampCount(req.Count, defaultQuestionCount, maxQuestionCount)

	questions, err := h.svc.GenerateQuiz(c.Context(), doc.ExtractedText.String, count)
	if err != nil {
		log.Error().Err(err).Msg("quiz_generate_failed")
		return c.Status(502).JSON(fiber.Map{"error": "generation unavailable, try again shortly"})
	}

	quiz := &model.Quiz{
		UserID:        userID,
		DocumentID:    doc.ID,
		Title:         orDefault(req.Title, doc.Title+" — quiz"),
		QuestionCount: len(questions),
	}
	raw, _ := json.Marshal(questions)
	quiz.QuestionsJSON = string(raw)

	id, err := h.repo.InsertQuiz(c.Context(), quiz)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if err := h.limiter.Increment(c.Context(), userID, plan.ResourceQuizzes); err != nil {
		log.Error().Err(err).Msg("usage_increment_failed")
	}
	h.recordStreak(c, userID)
	ws.BroadcastQuizReady(userID, id, len(questions))

	log.Info().Int64("quiz_id", id).Int("questions", len(questions)).Msg("quiz_created")
	return c.Status(201).JSON(fiber.Map{
		"id": id, "title": quiz.Title, "questions": redactAnswers(questions),
	})
}

// redactAnswers hides the correct option index until the quiz is submitted.
func redactAnswers(qs []model.QuizQuestion) []fiber.Map {
	out := make([]fiber.Map, 0, len(qs))
	for i, q := range qs {
		out = append(out, fiber.Map{"index": i, "question": q.Question, "options": q.Options})
	}
	return out
}

func (h *Handler) ListQuizzes(c *fiber.Ctx) error {
	userID := mustUserID(c)
	list, err := h.repo.ListQuizzes(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if list == nil {
		list = []model.Quiz{}
	}
	return c.JSON(list)
}

func (h *Handler) GetQuiz(c *fiber.Ctx) error {
	userID := mustUserID(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	quiz, err := h.repo.QuizByID(c.Context(), id, userID)
	if err == ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	var questions []model.QuizQuestion
	_ = json.Unmarshal([]byte(quiz.QuestionsJSON), &questions)
	return c.JSON(fiber.Map{
		"id": quiz.ID, "document_id": quiz.DocumentID, "title": quiz.Title,
		"questions": redactAnswers(questions), "created_at": quiz.CreatedAt,
	})
}

type submitReq struct {
	Answers []int `json:"answers"`
}

func (h *Handler) SubmitQuiz(c *fiber.Ctx) error {
	userID := mustUserID(c)
	log := h.log(c, userID)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)

	quiz, err := h.repo.QuizByID(c.Context(), id, userID)
	if err == ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db fail")
	}

	var req submitReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}

	var questions []model.QuizQuestion
	if err := json.Unmarshal([]byte(quiz.QuestionsJSON), &questions); err != nil {
		return c.Status(500).SendString("corrupt quiz")
	}
	if len(req.Answers) != len(questions) {
		return c.Status(400).JSON(fiber.Map{"error": "answer count mismatch"})
	}

	score := 0
	review := make([]fiber.Map, 0, len(questions))
	for i, q := range questions {
		correct := req.Answers[i] == q.Answer
		if correct {
			score++
		}
		review = append(review, fiber.Map{
			"index": i, "correct": correct, "answer": q.Answer, "why": q.Why,
		})
	}

	raw, _ := json.Marshal(req.Answers)
	result := &model.QuizResult{
		QuizID: quiz.ID, UserID: userID,
		Score: score, Total: len(questions), AnswersJSON: string(raw),
	}
	resultID, err := h.repo.InsertResult(c.Context(), result)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}

	award := h.awardAction(c, userID, gamify.XPQuizCompleted, "quiz_completed")

	log.Info().Int64("quiz_id", quiz.ID).Int("score", score).Int("total", len(questions)).Msg("quiz_submitted")
	return c.JSON(fiber.Map{
		"result_id": resultID, "score": score, "total": len(questions),
		"review": review, "xpAwarded": award.XPAwarded, "bonusXP": award.BonusXP,
	})
}

func (h *Handler) QuizResults(c *fiber.Ctx) error {
	userID := mustUserID(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	list, err := h.repo.ResultsByQuiz(c.Context(), id, userID)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if list == nil {
		list = []model.QuizResult{}
	}
	return c.JSON(list)
}

// CreateStudyPack generates a deck and a quiz from one document in a single
// call. Both quotas are checked up front and both counters consumed.
func (h *Handler) CreateStudyPack(c *fiber.Ctx) error {
	userID := mustUserID(c)
	log := h.log(c, userID)

	doc, ok := h.readyDoc(c, userID)
	if !ok {
		return nil
	}
	if !h.checkQuota(c, userID, plan.ResourceDecks) {
		return nil
	}
	if !h.checkQuota(c, userID, plan.ResourceQuizzes) {
		return nil
	}

	cards, questions, err := h.svc.GenerateStudyPack(c.Context(), doc.ExtractedText.String, defaultCardCount, defaultQuestionCount)
	if err != nil {
		log.Error().Err(err).Msg("study_pack_failed")
		return c.Status(502).JSON(fiber.Map{"error": "generation unavailable, try again shortly"})
	}

	cardsRaw, _ := json.Marshal(cards)
	deckID, err := h.repo.InsertDeck(c.Context(), &model.FlashcardDeck{
		UserID: userID, DocumentID: doc.ID,
		Title: doc.Title + " — flashcards", CardsJSON: string(cardsRaw), CardCount: len(cards),
	})
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	qRaw, _ := json.Marshal(questions)
	quizID, err := h.repo.InsertQuiz(c.Context(), &model.Quiz{
		UserID: userID, DocumentID: doc.ID,
		Title: doc.Title + " — quiz", QuestionsJSON: string(qRaw), QuestionCount: len(questions),
	})
	if err != nil {
		return c.Status(500).SendString("db fail")
	}

	_ = h.limiter.Increment(c.Context(), userID, plan.ResourceDecks)
	_ = h.limiter.Increment(c.Context(), userID, plan.ResourceQuizzes)
	award := h.awardAction(c, userID, gamify.XPDeckCreated, "deck_created")
	ws.BroadcastDeckReady(userID, deckID, len(cards))
	ws.BroadcastQuizReady(userID, quizID, len(questions))

	log.Info().Int64("deck_id", deckID).Int64("quiz_id", quizID).Msg("study_pack_created")
	return c.Status(201).JSON(fiber.Map{
		"deck_id": deckID, "quiz_id": quizID,
		"cards": cards, "questions": redactAnswers(questions),
		"xpAwarded": award.XPAwarded, "bonusXP": award.BonusXP,
	})
}

func clampCount(n, def, max int) int {
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func mustUserID(c *fiber.Ctx) int64 {
	uid, ok := c.Locals("userID").(int64)
	if !ok {
		return 0
	}
	return uid
}

func (h *Handler) recordStreak(c *fiber.Ctx, userID int64) {
	res, err := h.ledger.RecordActivity(c.Context(), userID)
	if err != nil {
		telemetry.L().Error().Err(err).Int64("user_id", userID).Msg("streak_record_failed")
		return
	}
	if res.StreakBonusAwarded > 0 {
		ws.BroadcastStreakBonus(userID, res.CurrentStreak, int(res.StreakBonusAwarded))
	}
}

// awardAction pays out action XP and counts the action for streak purposes.
// A milestone bonus reached by the action is announced over the socket and
// reported back in the award's BonusXP.
func (h *Handler) awardAction(c *fiber.Ctx, userID, amount int64, reason string) gamify.AwardResult {
	award, streak, err := h.ledger.AwardActionXP(c.Context(), userID, amount, reason)
	if err != nil {
		telemetry.L().Error().Err(err).Int64("user_id", userID).Msg("xp_award_failed")
		return award
	}
	if streak.StreakBonusAwarded > 0 {
		ws.BroadcastStreakBonus(userID, streak.CurrentStreak, int(streak.StreakBonusAwarded))
	}
	return award
}
