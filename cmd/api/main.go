package main

import (
	"flag"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/careercraft/careercraft_service/internal/account"
	"github.com/careercraft/careercraft_service/internal/auth"
	"github.com/careercraft/careercraft_service/internal/billing"
	"github.com/careercraft/careercraft_service/internal/cache"
	"github.com/careercraft/careercraft_service/internal/config"
	"github.com/careercraft/careercraft_service/internal/db"
	"github.com/careercraft/careercraft_service/internal/docs"
	"github.com/careercraft/careercraft_service/internal/gamify"
	"github.com/careercraft/careercraft_service/internal/mail"
	"github.com/careercraft/careercraft_service/internal/middleware"
	"github.com/careercraft/careercraft_service/internal/ocr"
	"github.com/careercraft/careercraft_service/internal/providers"
	"github.com/careercraft/careercraft_service/internal/quota"
	"github.com/careercraft/careercraft_service/internal/study"
	"github.com/careercraft/careercraft_service/internal/telemetry"
	"github.com/careercraft/careercraft_service/internal/ws"
)

// primaryClient picks the configured AI provider, falling back to whichever
// has a key.
func primaryClient(cfg *config.Config) providers.Client {
	openai := &providers.OpenAI{Key: cfg.OpenAIKey, Model: cfg.OpenAIModel, DryRun: cfg.ProviderDryRun}
	anthropic := &providers.Anthropic{Key: cfg.AnthropicKey, Model: cfg.AnthropicModel, DryRun: cfg.ProviderDryRun}
	gemini := &providers.Gemini{Key: cfg.GeminiKey, Model: cfg.GeminiModel, DryRun: cfg.ProviderDryRun}

	switch cfg.AIPrimary {
	case "anthropic":
		if cfg.AnthropicKey != "" {
			return anthropic
		}
	case "gemini":
		if cfg.GeminiKey != "" {
			return gemini
		}
	}
	if cfg.OpenAIKey != "" {
		return openai
	}
	if cfg.AnthropicKey != "" {
		return anthropic
	}
	return gemini
}

func main() {
	doMigrate := flag.Bool("migrate", false, "run migrations and exit")
	flag.Parse()

	cfg := config.Load()
	sqlxDB := db.MustConnect(cfg.DBDSN)
	rdb := cache.MustConnect(cfg.RedisAddr, cfg.RedisDB)

	tlog := telemetry.Init(telemetry.FromEnv(config.GetEnv))
	tlog.Info().Str("port", cfg.AppPort).Msg("booting careercraft_service")

	if *doMigrate {
		db.MustMigrate(sqlxDB)
		log.Println("migrations done")
		return
	}

	app := fiber.New(fiber.Config{
		BodyLimit: (cfg.AllowedMaxFileSize + 1) * 1024 * 1024,
	})

	app.Use(middleware.RateLimiter())
	app.Use(middleware.RequestID())
	app.Use(middleware.Recover())
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.RequestLog())
	app.Use(middleware.SecureHeaders())

	repo := account.NewRepo(sqlxDB)
	mailer := mail.New(cfg)
	authReg := auth.NewRegistry(cfg, sqlxDB, rdb, mailer)

	limiter := quota.NewLimiter(repo)
	ledger := gamify.NewLedger(repo)

	ai := primaryClient(cfg)
	vision := ocr.NewOpenAIVision(cfg.OpenAIKey, cfg.OCROpenAIModel, cfg.OpenAIRPS, cfg.OpenAIBurst, cfg.ProviderMaxRetries)

	docRepo := docs.NewRepo(sqlxDB)
	docSvc := docs.NewService(docRepo, rdb, ai, vision,
		cfg.OCREngine, cfg.OCRLang, cfg.OCRImgMaxW, cfg.OCRImgQuality, cfg.OCRImgGrayscale, cfg.OCRCacheTTL)
	docHandler := docs.NewHandler(cfg, docRepo, docSvc, limiter, ledger)

	studyRepo := study.NewRepo(sqlxDB)
	studyHandler := study.NewHandler(studyRepo, docRepo, study.NewService(ai), limiter, ledger)

	gamifyHandler := gamify.NewHandler(ledger)
	usageHandler := quota.NewHandler(limiter)

	gateway := billing.NewGateway(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret)
	billingHandler := billing.NewHandler(repo, gateway)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Static("/storage", cfg.StorageDir)

	// public
	pub := app.Group("/api/v1")
	pub.Post("/auth/register", authReg.Register)
	pub.Post("/auth/verify-email", authReg.VerifyEmail)
	pub.Post("/auth/resend-code", authReg.ResendCode)
	pub.Post("/auth/login", authReg.Login)
	pub.Post("/auth/forgot-password", authReg.ForgotPassword)
	pub.Post("/auth/reset-password", authReg.ResetPassword)
	pub.Get("/auth/google/login", authReg.GoogleLogin)
	pub.Get("/auth/google/callback", authReg.GoogleCallback)
	pub.Get("/plans", billingHandler.Plans)

	protected := app.Group("/api/v1", middleware.AuthSession(authReg))

	protected.Post("/auth/logout", authReg.Logout)
	protected.Get("/me", authReg.Me)
	protected.Patch("/me", authReg.UpdateProfile)
	protected.Post("/me/avatar", middleware.FileUploadValidator(cfg), authReg.UploadAvatar)
	protected.Get("/usage", usageHandler.Usage)

	protected.Post("/documents", middleware.FileUploadValidator(cfg), docHandler.Upload)
	protected.Get("/documents", docHandler.List)
	protected.Get("/documents/:id", docHandler.Get)
	protected.Get("/documents/:id/text", docHandler.GetText)
	protected.Delete("/documents/:id", docHandler.Delete)
	protected.Post("/documents/:id/chat", docHandler.Chat)
	protected.Get("/documents/:id/messages", docHandler.Messages)

	protected.Post("/documents/:id/flashcards", studyHandler.CreateDeck)
	protected.Post("/documents/:id/quiz", studyHandler.CreateQuiz)
	protected.Post("/documents/:id/study-pack", studyHandler.CreateStudyPack)
	protected.Get("/flashcards", studyHandler.ListDecks)
	protected.Get("/flashcards/:id", studyHandler.GetDeck)
	protected.Get("/quizzes", studyHandler.ListQuizzes)
	protected.Get("/quizzes/:id", studyHandler.GetQuiz)
	protected.Post("/quizzes/:id/submit", studyHandler.SubmitQuiz)
	protected.Get("/quizzes/:id/results", studyHandler.QuizResults)

	protected.Post("/interviews", studyHandler.StartInterview)
	protected.Get("/interviews", studyHandler.ListInterviews)
	protected.Get("/interviews/:id", studyHandler.GetInterview)
	protected.Post("/interviews/:id/answer", studyHandler.AnswerInterview)
	protected.Post("/interviews/:id/finish", studyHandler.FinishInterview)

	protected.Post("/gamify/daily-bonus", gamifyHandler.DailyBonus)
	protected.Get("/gamify/rank", gamifyHandler.Rank)
	protected.Get("/gamify/leaderboard", gamifyHandler.Leaderboard)

	protected.Post("/billing/checkout", billingHandler.Checkout)
	protected.Post("/billing/verify", billingHandler.Verify)
	protected.Post("/billing/cancel", billingHandler.Cancel)
	protected.Get("/billing/subscription", billingHandler.Subscription)

	app.Get("/ws", middleware.WSUpgradeMiddleware(), websocket.New(ws.HandleWS))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
