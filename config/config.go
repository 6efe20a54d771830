package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	defaultDBDriver          = "sqlite"
	defaultDBDSN             = "bookstore.db"
	defaultVectorCollection  = "books"
	defaultCompletionBackend = "auto"
	defaultCompletionBaseURL = "http://localhost:11434"
	defaultCompletionModel   = "qwen2.5:14b-instruct"
	defaultCompletionRetries = 2
	defaultHistoryWindow     = 16
	defaultMaxPlanActions    = 3
)

// defaultConfirmTokens is the canonicalized confirmation token set. The values
// are hand-tuned from production traffic, not derived; override via
// BOOKAGENT_CONFIRM_TOKENS when tuning.
var defaultConfirmTokens = []string{"ok", "oke", "okay", "dongy", "xacnhan", "yes", "confirm"}

// Config carries everything needed to assemble the ordering agent.
type Config struct {
	DBDriver string
	DBDSN    string

	// VectorPath is the persistence directory for the vector index; empty
	// keeps the index in memory (single instance only).
	VectorPath       string
	VectorCollection string

	// CompletionBackend selects the completion transport: "auto" probes the
	// base URL once, "openai", "ollama" and "anthropic" pin a backend.
	CompletionBackend string
	CompletionBaseURL string
	CompletionModel   string
	CompletionAPIKey  string
	CompletionRetries int

	// RedisAddr enables the Redis-backed dialogue state store; empty keeps
	// state in process memory (single instance only).
	RedisAddr string

	HistoryWindow  int
	MaxPlanActions int

	// Retrieval fusion weights. Hand-tuned constants carried over from the
	// original ranking; exposed for tuning rather than treated as invariants.
	WeightLexical float64
	WeightVector  float64
	TitleBoost    float64
	CategoryBoost float64
	ConfirmTokens []string
}

// FromEnv builds a Config from BOOKAGENT_* environment variables, falling back
// to local-development defaults.
func FromEnv() Config {
	cfg := Config{
		DBDriver:          envOr("BOOKAGENT_DB_DRIVER", defaultDBDriver),
		DBDSN:             envOr("BOOKAGENT_DB_DSN", defaultDBDSN),
		VectorPath:        envOr("BOOKAGENT_VECTOR_PATH", ""),
		VectorCollection:  envOr("BOOKAGENT_VECTOR_COLLECTION", defaultVectorCollection),
		CompletionBackend: envOr("BOOKAGENT_COMPLETION_BACKEND", defaultCompletionBackend),
		CompletionBaseURL: envOr("BOOKAGENT_COMPLETION_BASE_URL", defaultCompletionBaseURL),
		CompletionModel:   envOr("BOOKAGENT_COMPLETION_MODEL", defaultCompletionModel),
		CompletionAPIKey:  envOr("BOOKAGENT_COMPLETION_API_KEY", ""),
		CompletionRetries: envInt("BOOKAGENT_COMPLETION_RETRIES", defaultCompletionRetries),
		RedisAddr:         envOr("BOOKAGENT_REDIS_ADDR", ""),
		HistoryWindow:     envInt("BOOKAGENT_HISTORY_WINDOW", defaultHistoryWindow),
		MaxPlanActions:    envInt("BOOKAGENT_MAX_PLAN_ACTIONS", defaultMaxPlanActions),
		WeightLexical:     envFloat("BOOKAGENT_WEIGHT_LEXICAL", 0.55),
		WeightVector:      envFloat("BOOKAGENT_WEIGHT_VECTOR", 0.35),
		TitleBoost:        envFloat("BOOKAGENT_TITLE_BOOST", 0.20),
		CategoryBoost:     envFloat("BOOKAGENT_CATEGORY_BOOST", 0.15),
	}
	if raw := strings.TrimSpace(os.Getenv("BOOKAGENT_CONFIRM_TOKENS")); raw != "" {
		for _, tok := range strings.Split(raw, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				cfg.ConfirmTokens = append(cfg.ConfirmTokens, tok)
			}
		}
	} else {
		cfg.ConfirmTokens = append(cfg.ConfirmTokens, defaultConfirmTokens...)
	}
	return cfg
}

// Validate reports configurations that cannot be wired.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported BOOKAGENT_DB_DRIVER %q", c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("BOOKAGENT_DB_DSN must not be empty")
	}
	switch c.CompletionBackend {
	case "auto", "openai", "ollama", "anthropic":
	default:
		return fmt.Errorf("unsupported BOOKAGENT_COMPLETION_BACKEND %q", c.CompletionBackend)
	}
	if c.CompletionRetries < 0 {
		return fmt.Errorf("BOOKAGENT_COMPLETION_RETRIES must not be negative")
	}
	if c.HistoryWindow < 1 {
		return fmt.Errorf("BOOKAGENT_HISTORY_WINDOW must be at least 1")
	}
	if c.MaxPlanActions < 1 {
		return fmt.Errorf("BOOKAGENT_MAX_PLAN_ACTIONS must be at least 1")
	}
	for name, w := range map[string]float64{
		"BOOKAGENT_WEIGHT_LEXICAL": c.WeightLexical,
		"BOOKAGENT_WEIGHT_VECTOR":  c.WeightVector,
		"BOOKAGENT_TITLE_BOOST":    c.TitleBoost,
		"BOOKAGENT_CATEGORY_BOOST": c.CategoryBoost,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be within [0,1]", name)
		}
	}
	if len(c.ConfirmTokens) == 0 {
		return fmt.Errorf("BOOKAGENT_CONFIRM_TOKENS must not be empty")
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
