package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BotModeWebhook = "webhook"
	BotModePolling = "polling"
)

const (
	TranslatorDeepLX         = "deeplx"
	TranslatorLibreTranslate = "libretranslate"
	TranslatorMyMemory       = "mymemory"
	TranslatorGoogle         = "google"
	TranslatorOpenAI         = "openai"
)

var (
	defaultDeepLXEndpoints = "https://api.deeplx.org/translate,https://api.deeplx.net/translate,https://deeplx.vercel.app/translate"
	defaultLibreEndpoints  = "https://translate.terraprint.co/translate,https://libretranslate.de/translate,https://translate.argosopentech.com/translate"
)

type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string
	UserAgent string

	BotToken         string
	BotMode          string
	WebhookURL       string
	WebhookSecret    string
	StorageChannelID int64
	AdminChatIDs     []int64
	ChatRatePerMin   int

	MongoURI string
	MongoDB  string
	RedisURL string

	SearchResultLimit   int
	SearchHighRelevance float64

	TranslateTimeout    time.Duration
	TranslateParallel   bool
	TranslateRatePerSec float64
	TranslatorConfig    string
	Translators         []TranslatorConfig
}

// TranslatorConfig describes one entry of the translation provider chain.
// Fields that do not apply to Kind are ignored.
type TranslatorConfig struct {
	Kind     string `yaml:"kind"`
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Email    string `yaml:"email"`
	Model    string `yaml:"model"`
	Timeout  int    `yaml:"timeout_ms"`
}

func (t TranslatorConfig) TimeoutDuration() time.Duration {
	if t.Timeout <= 0 {
		return 0
	}
	return time.Duration(t.Timeout) * time.Millisecond
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent: getEnv("TRANSLATE_USER_AGENT", "multfilm-searchbot/1.0"),

		BotToken:         strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		BotMode:          parseBotMode(getEnv("BOT_MODE", BotModeWebhook)),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		WebhookSecret:    strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),
		StorageChannelID: getEnvInt64("STORAGE_CHANNEL_ID", 0),
		AdminChatIDs:     getEnvInt64List("ADMIN_CHAT_IDS"),
		ChatRatePerMin:   getEnvInt("CHAT_RATE_PER_MINUTE", 20),

		MongoURI: getEnv("MONGO_URI", ""),
		MongoDB:  getEnv("MONGO_DB", "multfilm"),
		RedisURL: getEnv("REDIS_URL", ""),

		SearchResultLimit:   getEnvInt("SEARCH_RESULT_LIMIT", 10),
		SearchHighRelevance: getEnvFloat("SEARCH_HIGH_RELEVANCE", 200),

		TranslateTimeout:    time.Duration(getEnvInt("TRANSLATE_TIMEOUT_MS", 4000)) * time.Millisecond,
		TranslateParallel:   getEnvBool("TRANSLATE_PARALLEL", false),
		TranslateRatePerSec: getEnvFloat("TRANSLATE_RATE_PER_SEC", 0),
		TranslatorConfig:    getEnv("TRANSLATOR_CONFIG", ""),
		Translators:         translatorsFromEnv(),
	}
}

// translatorsFromEnv builds the default chain: DeepLX mirrors, then
// LibreTranslate mirrors, MyMemory, Google and finally an LLM when a key is
// configured. An endpoint list set to "off" disables that provider kind.
func translatorsFromEnv() []TranslatorConfig {
	var chain []TranslatorConfig
	for _, endpoint := range getEnvList("DEEPLX_ENDPOINTS", defaultDeepLXEndpoints) {
		chain = append(chain, TranslatorConfig{Kind: TranslatorDeepLX, Endpoint: endpoint})
	}
	libreKey := strings.TrimSpace(os.Getenv("LIBRETRANSLATE_API_KEY"))
	for _, endpoint := range getEnvList("LIBRETRANSLATE_ENDPOINTS", defaultLibreEndpoints) {
		chain = append(chain, TranslatorConfig{Kind: TranslatorLibreTranslate, Endpoint: endpoint, APIKey: libreKey})
	}
	if endpoint := getEnv("MYMEMORY_ENDPOINT", "https://api.mymemory.translated.net/get"); !isOff(endpoint) {
		chain = append(chain, TranslatorConfig{
			Kind:     TranslatorMyMemory,
			Endpoint: endpoint,
			Email:    strings.TrimSpace(os.Getenv("MYMEMORY_EMAIL")),
		})
	}
	if endpoint := getEnv("GOOGLE_TRANSLATE_ENDPOINT", "https://translate.googleapis.com/translate_a/single"); !isOff(endpoint) {
		chain = append(chain, TranslatorConfig{Kind: TranslatorGoogle, Endpoint: endpoint})
	}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		chain = append(chain, TranslatorConfig{
			Kind:     TranslatorOpenAI,
			APIKey:   key,
			Endpoint: getEnv("OPENAI_BASE_URL", ""),
			Model:    getEnv("OPENAI_MODEL", ""),
		})
	}
	return chain
}

func parseBotMode(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), BotModePolling) {
		return BotModePolling
	}
	return BotModeWebhook
}

func isOff(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "off", "none", "disabled":
		return true
	}
	return false
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// getEnvInt64 accepts negative values; Telegram channel ids are negative.
func getEnvInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// getEnvList splits a comma separated value. "off" yields an empty list.
func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	if isOff(raw) {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func getEnvInt64List(key string) []int64 {
	var out []int64
	for _, item := range getEnvList(key, "") {
		parsed, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}
