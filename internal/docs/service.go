package docs

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/careercraft/careercraft_service/internal/img"
	"github.com/careercraft/careercraft_service/internal/model"
	"github.com/careercraft/careercraft_service/internal/ocr"
	"github.com/careercraft/careercraft_service/internal/providers"
	"github.com/careercraft/careercraft_service/internal/telemetry"
	"github.com/careercraft/careercraft_service/internal/ws"
)

// Service runs the extraction + summary pipeline for uploaded documents.
type Service struct {
	repo *Repo
	rdb  *redis.Client

	ai    providers.Client
	retry providers.RetryConfig

	vision interface {
		Read(ctx context.Context, img []byte, mime string) (ocr.Result, error)
	}
	ocrEngine   string
	ocrLang     string
	ocrMaxW     int
	ocrQuality  int
	ocrGray     bool
	ocrCacheTTL time.Duration
}

func NewService(repo *Repo, rdb *redis.Client, ai providers.Client, vision *ocr.OpenAIVision,
	engine, lang string, maxW, quality int, gray bool, cacheTTL time.Duration) *Service {
	return &Service{
		repo: repo, rdb: rdb,
		ai: ai, retry: providers.DefaultRetry(),
		vision:    vision,
		ocrEngine: engine, ocrLang: lang,
		ocrMaxW: maxW, ocrQuality: quality, ocrGray: gray,
		ocrCacheTTL: cacheTTL,
	}
}

// ProcessAsync extracts the document text and generates the summary on a
// background goroutine. A redis lock keeps duplicate workers off the same
// document.
func (s *Service) ProcessAsync(docID int64) {
	go func() {
		log := telemetry.L().With().Int64("doc_id", docID).Logger()
		log.Info().Str("stage", "start").Msg("process_document")

		ctx := context.Background()
		lockKey := "lock:doc:" + strconv.FormatInt(docID, 10)
		ok, _ := s.rdb.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if !ok {
			log.Warn().Msg("lock_exists_skip")
			return
		}
		defer s.rdb.Del(ctx, lockKey)

		doc, err := s.repo.ByID(ctx, docID)
		if err != nil {
			log.Error().Err(err).Msg("doc_not_found")
			return
		}

		text, pages, err := s.extract(ctx, doc.FilePath, doc.FileHash, doc.MIME)
		if err != nil {
			log.Error().Err(err).Msg("extract_fail")
			_ = s.repo.MarkError(ctx, docID)
			waitForSubscribers(docID)
			ws.BroadcastDocError(docID, err)
			return
		}
		if err := s.repo.SaveExtracted(ctx, docID, text, pages); err != nil {
			log.Error().Err(err).Msg("save_extracted_fail")
			_ = s.repo.MarkError(ctx, docID)
			return
		}
		log.Info().Int("chars", len(text)).Int("pages", pages).Msg("extract_done")
		waitForSubscribers(docID)
		ws.BroadcastDocExtracted(docID, text)

		sumCtx, cancel := context.WithTimeout(ctx, 90*time.Second)
		defer cancel()
		comp, err := providers.CompleteWithRetry(sumCtx, s.ai,
			providers.BuildSummaryPrompt(text), s.retry, providers.FallbackSummary)
		if err != nil {
			log.Error().Err(err).Msg("summary_fail")
			// extraction succeeded, keep the document usable without a summary
			if err := s.repo.SaveSummary(ctx, docID, ""); err != nil {
				log.Error().Err(err).Msg("save_summary_fail")
			}
			return
		}
		if comp.Degraded {
			log.Warn().Msg("summary_degraded_fallback")
		}
		if err := s.repo.SaveSummary(ctx, docID, comp.Text); err != nil {
			log.Error().Err(err).Msg("save_summary_fail")
			return
		}
		ws.BroadcastDocSummary(docID, comp.Text)
		log.Info().Str("stage", "completed").Msg("process_document")
	}()
}

// waitForSubscribers gives the uploading client a short window to join the
// document room before the first progress event fires. The event goes out
// either way once the window closes.
func waitForSubscribers(docID int64) {
	for i := 0; i < 30; i++ {
		if ws.HasDocSubscribers(docID) {
			return
		}
		time.Sleep(1 * time.Second)
	}
}

// extract picks the extraction path by MIME: text layer for PDFs, OCR for
// images. OCR output is cached in redis by file hash.
func (s *Service) extract(ctx context.Context, path, hash, mime string) (string, int, error) {
	if mime == "application/pdf" {
		return ExtractPDFText(path)
	}

	log := telemetry.L().With().Str("img", path).Logger()
	cacheKey := "ocr:" + hash
	if txt, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil && strings.TrimSpace(txt) != "" {
		log.Info().Int("len", len(txt)).Msg("ocr_cache_hit")
		return txt, 1, nil
	}

	if s.ocrEngine == "tesseract" {
		txt, err := ocr.ExtractText(path, s.ocrLang)
		if err != nil {
			return "", 0, err
		}
		return s.cacheOCR(ctx, cacheKey, txt)
	}

	prep, err := img.PrepareForOCR(path, s.ocrMaxW, s.ocrQuality, s.ocrGray)
	if err != nil {
		return "", 0, err
	}

	ocrCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	res, err := s.vision.Read(ocrCtx, prep.Bytes, prep.MIME)
	if err != nil {
		return "", 0, err
	}
	return s.cacheOCR(ctx, cacheKey, res.Text)
}

func (s *Service) cacheOCR(ctx context.Context, key, text string) (string, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 1, ErrNoText
	}
	if s.ocrCacheTTL > 0 {
		if err := s.rdb.Set(ctx, key, text, s.ocrCacheTTL).Err(); err != nil {
			telemetry.L().Warn().Err(err).Msg("ocr_cache_set_err")
		}
	}
	return text, 1, nil
}

// Chat answers a question about the document, grounded on its extracted text.
// Rate-limit failures degrade to the canned fallback answer.
func (s *Service) Chat(ctx context.Context, docText, question string, history []model.ChatMessage) (providers.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	return providers.CompleteWithRetry(ctx, s.ai,
		providers.BuildChatPrompt(docText, question, history), s.retry, providers.FallbackChatAnswer)
}
