package docs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/careercraft/careercraft_service/internal/config"
	"github.com/careercraft/careercraft_service/internal/gamify"
	"github.com/careercraft/careercraft_service/internal/img"
	"github.com/careercraft/careercraft_service/internal/middleware"
	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/plan"
	"github.com/careercraft/careercraft_service/internal/quota"
	"github.com/careercraft/careercraft_service/internal/telemetry"
)

type Handler struct {
	cfg     *config.Config
	repo    *Repo
	svc     *Service
	limiter *quota.Limiter
	ledger  *gamify.Ledger
}

func NewHandler(cfg *config.Config, repo *Repo, svc *Service, limiter *quota.Limiter, ledger *gamify.Ledger) *Handler {
	return &Handler{cfg: cfg, repo: repo, svc: svc, limiter: limiter, ledger: ledger}
}

func (h *Handler) Upload(c *fiber.Ctx) error {
	userID := mustUserID(c)
	rid := c.Locals(middleware.ReqIDKey).(string)
	log := telemetry.L().With().Str("req_id", rid).Int64("user_id", userID).Logger()

	denial, err := h.limiter.Check(c.Context(), userID, plan.ResourceDocuments)
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if denial != nil {
		return c.Status(403).JSON(denial)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "file required"})
	}

	tmp := filepath.Join(os.TempDir(), uuid.New().String())
	if err := c.SaveFile(fh, tmp); err != nil {
		return c.Status(500).SendString("save fail")
	}
	defer os.Remove(tmp)

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	doc := &model.Document{
		UserID:   userID,
		Title:    strings.TrimSuffix(fh.Filename, ext),
		FileName: fh.Filename,
	}
	if t := strings.TrimSpace(c.FormValue("title")); t != "" {
		doc.Title = t
	}

	docDir := filepath.Join(h.cfg.StorageDir, "docs")
	if ext == ".pdf" {
		dst := filepath.Join(docDir, uuid.New().String()+".pdf")
		hash, size, err := copyWithHash(tmp, dst)
		if err != nil {
			return c.Status(500).SendString("store fail")
		}
		doc.FilePath, doc.FileHash, doc.SizeBytes = dst, hash, size
		doc.MIME = "application/pdf"
	} else {
		save, err := img.SaveResizedJPEG(tmp, docDir, h.cfg.OCRImgMaxW)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "not a valid image"})
		}
		doc.FilePath, doc.FileHash = save.Path, save.Hash
		doc.MIME = "image/jpeg"
		if fi, err := os.Stat(save.Path); err == nil {
			doc.SizeBytes = fi.Size()
		}
	}

	id, err := h.repo.Insert(c.Context(), doc)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	log.Info().Int64("doc_id", id).Str("mime", doc.MIME).Msg("document_created")

	if err := h.limiter.Increment(c.Context(), userID, plan.ResourceDocuments); err != nil {
		log.Error().Err(err).Msg("usage_increment_failed")
	}
	award, _, err := h.ledger.AwardActionXP(c.Context(), userID, gamify.XPUpload, "document_upload")
	if err != nil {
		log.Error().Err(err).Msg("xp_award_failed")
	}

	h.svc.ProcessAsync(id)
	return c.Status(201).JSON(fiber.Map{
		"id": id, "status": model.DocProcessing,
		"xpAwarded": award.XPAwarded, "bonusXP": award.BonusXP,
	})
}

func (h *Handler) List(c *fiber.Ctx) error {
	userID := mustUserID(c)
	list, err := h.repo.ListByUser(c.Context(), userID)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if list == nil {
		list = []model.Document{}
	}
	return c.JSON(list)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	userID := mustUserID(c)
	doc, ok := h.owned(c, userID)
	if !ok {
		return nil
	}
	return c.JSON(doc)
}

// GetText exposes the raw extracted text for a ready document.
func (h *Handler) GetText(c *fiber.Ctx) error {
	userID := mustUserID(c)
	doc, ok := h.owned(c, userID)
	if !ok {
		return nil
	}
	if !doc.ExtractedText.Valid {
		return c.Status(409).JSON(fiber.Map{"error": "document still processing"})
	}
	return c.JSON(fiber.Map{"id": doc.ID, "text": doc.ExtractedText.String})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	userID := mustUserID(c)
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	doc, err := h.repo.Owned(c.Context(), id, userID)
	if err == ErrNotFound {
		return c.Status(404).JSON(fiber.Map{"error": "not found"})
	}
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if err := h.repo.Delete(c.Context(), id, userID); err != nil {
		return c.Status(500).SendString("db fail")
	}
	_ = os.Remove(doc.FilePath)
	// deleting a document never refunds the documents_uploaded counter
	return c.JSON(fiber.Map{"ok": true})
}

type chatReq struct {
	Question string `json:"question"`
}

// Chat is the quota-gated ask-your-document endpoint.
func (h *Handler) Chat(c *fiber.Ctx) error {
	userID := mustUserID(c)
	rid := c.Locals(middleware.ReqIDKey).(string)
	log := telemetry.L().With().Str("req_id", rid).Int64("user_id", userID).Logger()

	doc, ok := h.owned(c, userID)
	if !ok {
		return nil
	}
	if doc.Status != model.DocReady || !doc.ExtractedText.Valid {
		return c.Status(409).JSON(fiber.Map{"error": "document still processing"})
	}

	var req chatReq
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "question required"})
	}

	denial, err := h.limiter.Check(c.Context(), userID, plan.ResourceQueries)
	if err != nil {
		return c.Status(500).SendString("db error")
	}
	if denial != nil {
		return c.Status(403).JSON(denial)
	}

	history, err := h.repo.ChatHistory(c.Context(), doc.ID, 10)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}

	comp, err := h.svc.Chat(c.Context(), doc.ExtractedText.String, req.Question, history)
	if err != nil {
		log.Error().Err(err).Msg("chat_completion_failed")
		return c.Status(502).JSON(fiber.Map{"error": "assistant unavailable"})
	}

	userMsg := &model.ChatMessage{DocumentID: doc.ID, UserID: userID, Role: "user", Content: req.Question}
	botMsg := &model.ChatMessage{DocumentID: doc.ID, UserID: userID, Role: "assistant", Content: comp.Text}
	if err := h.repo.InsertChat(c.Context(), userMsg); err != nil {
		return c.Status(500).SendString("db fail")
	}
	if err := h.repo.InsertChat(c.Context(), botMsg); err != nil {
		return c.Status(500).SendString("db fail")
	}

	if err := h.limiter.Increment(c.Context(), userID, plan.ResourceQueries); err != nil {
		log.Error().Err(err).Msg("usage_increment_failed")
	}
	award, _, err := h.ledger.AwardChatActionXP(c.Context(), userID)
	if err != nil {
		log.Error().Err(err).Msg("xp_award_failed")
	}

	log.Info().Int64("doc_id", doc.ID).Bool("degraded", comp.Degraded).Int("latency_ms", comp.LatencyMs).Msg("chat_answered")
	return c.JSON(fiber.Map{
		"answer":    comp.Text,
		"degraded":  comp.Degraded,
		"xpAwarded": award.XPAwarded,
		"bonusXP":   award.BonusXP,
	})
}

func (h *Handler) Messages(c *fiber.Ctx) error {
	userID := mustUserID(c)
	doc, ok := h.owned(c, userID)
	if !ok {
		return nil
	}
	msgs, err := h.repo.ChatHistory(c.Context(), doc.ID, 100)
	if err != nil {
		return c.Status(500).SendString("db fail")
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return c.JSON(msgs)
}

// owned resolves :id to the caller's document; on failure the response is
// already written and ok is false.
func (h *Handler) owned(c *fiber.Ctx, userID int64) (*model.Document, bool) {
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)
	doc, err := h.repo.Owned(c.Context(), id, userID)
	if err == ErrNotFound {
		_ = c.Status(404).JSON(fiber.Map{"error": "not found"})
		return nil, false
	}
	if err != nil {
		_ = c.Status(500).SendString("db fail")
		return nil, false
	}
	return doc, true
}

func copyWithHash(src, dst string) (string, int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", 0, err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return "", 0, err
	}
	defer out.Close()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, h), in)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func mustUserID(c *fiber.Ctx) int64 {
	uid, ok := c.Locals("userID").(int64)
	if !ok {
		return 0
	}
	return uid
}
