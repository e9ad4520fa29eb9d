package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv, AppPort, BaseURL string
	ClientURL                string
	DBDSN                    string
	RedisAddr                string
	RedisDB                  int
	SessionCookieName        string
	SessionCookieSecret      string
	JWTSecret                string
	JWTTTL                   time.Duration

	GoogleClientID, GoogleClientSecret, GoogleRedirectURL string
	OAuthAllowedDomains                                   []string
	CORSOrigins                                           []string

	OpenAIKey, OpenAIModel       string
	AnthropicKey, AnthropicModel string
	GeminiKey, GeminiModel       string
	AIPrimary                    string
	ProviderMaxRetries           int
	ProviderDryRun               bool

	OCRLang         string
	OCREngine       string
	OCROpenAIModel  string
	OCRImgMaxW      int
	OCRImgQuality   int
	OCRImgGrayscale bool
	OCRCacheTTL     time.Duration
	OpenAIRPS       int
	OpenAIBurst     int

	StorageDir         string
	AvatarMaxW         int
	AllowedMaxFileSize int
	AllowedFileExt     []string

	SMTPHost, SMTPPort     string
	SMTPUser, SMTPPassword string
	MailFrom               string

	GatewayBaseURL   string
	GatewayKeyID     string
	GatewayKeySecret string
}

func Load() *Config {
	_ = godotenv.Load()

	c := &Config{
		AppEnv:              get("APP_ENV", "dev"),
		AppPort:             get("APP_PORT", "8080"),
		BaseURL:             get("APP_BASE_URL", "http://localhost:8080"),
		ClientURL:           get("CLIENT_URL", "http://localhost:5173"),
		DBDSN:               must("DB_DSN"),
		RedisAddr:           get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisDB:             atoi(get("REDIS_DB", "0")),
		SessionCookieName:   get("SESSION_COOKIE_NAME", "careercraft_sid"),
		SessionCookieSecret: must("SESSION_COOKIE_SECRET"),
		JWTSecret:           must("JWT_SECRET"),
		JWTTTL:              mustDuration(get("JWT_TTL", "24h")),
		CORSOrigins:         split(get("CORS_ORIGINS", "http://localhost:5173")),
		GoogleClientID:      get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:   get("GOOGLE_REDIRECT_URL", ""),
		OAuthAllowedDomains: split(get("OAUTH_ALLOWED_DOMAINS", "")),
		OpenAIKey:           get("OPENAI_API_KEY", ""),
		OpenAIModel:         get("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicKey:        get("ANTHROPIC_API_KEY", ""),
		AnthropicModel:      get("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		GeminiKey:           get("GEMINI_API_KEY", ""),
		GeminiModel:         get("GEMINI_MODEL", "gemini-2.5-pro"),
		AIPrimary:           get("AI_PRIMARY", "openai"),
		ProviderMaxRetries:  atoi(get("PROVIDER_MAX_RETRIES", "3")),
		ProviderDryRun:      parseBool(get("PROVIDER_DRY_RUN", "false")),
		OCRLang:             get("OCR_LANG", "eng"),
		OCREngine:           get("OCR_ENGINE", "openai"),
		OCROpenAIModel:      get("OCR_OPENAI_MODEL", "gpt-4o-mini"),
		OCRImgMaxW:          atoi(get("OCR_IMG_MAX_W", "1024")),
		OCRImgQuality:       atoi(get("OCR_IMG_QUALITY", "60")),
		OCRImgGrayscale:     parseBool(get("OCR_IMG_GRAYSCALE", "true")),
		OCRCacheTTL:         mustDuration(get("OCR_CACHE_TTL", "168h")),
		OpenAIRPS:           atoi(get("OPENAI_RPS", "2")),
		OpenAIBurst:         atoi(get("OPENAI_BURST", "2")),
		StorageDir:          get("STORAGE_DIR", "./storage"),
		AvatarMaxW:          atoi(get("AVATAR_MAX_W", "256")),
		AllowedMaxFileSize:  GetEnvInt("ALLOWED_MAX_FILE_SIZE", 10),
		AllowedFileExt:      GetEnvList("ALLOWED_FILE_EXT", []string{".pdf", ".jpg", ".jpeg", ".png"}),
		SMTPHost:            get("SMTP_HOST", ""),
		SMTPPort:            get("SMTP_PORT", "587"),
		SMTPUser:            get("SMTP_USER", ""),
		SMTPPassword:        get("SMTP_PASSWORD", ""),
		MailFrom:            get("MAIL_FROM", "CareerCraft AI <no-reply@careercraft.ai>"),
		GatewayBaseURL:      get("GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
		GatewayKeyID:        get("GATEWAY_KEY_ID", ""),
		GatewayKeySecret:    get("GATEWAY_KEY_SECRET", ""),
	}
	return c
}

func GetEnvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func GetEnvList(k string, d []string) []string {
	if v := os.Getenv(k); v != "" {
		return strings.Split(v, ",")
	}
	return d
}

func get(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing env %s", k)
	}
	return v
}
func atoi(s string) int                   { i, _ := strconv.Atoi(s); return i }
func parseBool(s string) bool             { b, _ := strconv.ParseBool(s); return b }
func mustDuration(s string) time.Duration { d, _ := time.ParseDuration(s); return d }
func split(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func GetEnv(k, d string) string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return v
}
