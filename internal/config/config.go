package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/n1kko777/sber-agents/internal/domain"
)

// Config is the root configuration for the assistant.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Providers  ProvidersConfig  `json:"providers"`
	Retrieval  RetrievalConfig  `json:"retrieval"`
	Agent      AgentConfig      `json:"agent"`
	Checkpoint CheckpointConfig `json:"checkpoint"`
	Telegram   TelegramConfig   `json:"telegram"`
	Data       DataConfig       `json:"data"`
}

type GeneralConfig struct {
	LogLevel    string `json:"logLevel"`
	PromptsFile string `json:"promptsFile"`
}

type ProvidersConfig struct {
	Completion ProviderConfig `json:"completion"`
	Embeddings ProviderConfig `json:"embeddings"`
	Reranker   ProviderConfig `json:"reranker"`
}

type ProviderConfig struct {
	APIBase string `json:"apiBase"`
	APIKey  string `json:"apiKey,omitempty"`
	Model   string `json:"model,omitempty"`
}

// RetrievalConfig tunes the hybrid retrieval pipeline.
type RetrievalConfig struct {
	Mode           string  `json:"mode"` // semantic | hybrid | hybrid_reranker
	SemanticK      int     `json:"semanticK"`
	LexicalK       int     `json:"lexicalK"`
	WeightSemantic float64 `json:"weightSemantic"`
	WeightBM25     float64 `json:"weightBm25"`
	RerankerTopK   int     `json:"rerankerTopK"`
	FAQThreshold   float64 `json:"faqThreshold"`
}

type AgentConfig struct {
	ModelCallLimit   int      `json:"modelCallLimit"`
	ToolCallLimit    int      `json:"toolCallLimit"`
	MaxParallelTools int      `json:"maxParallelTools"`
	ProtectedTools   []string `json:"protectedTools"`
}

type CheckpointConfig struct {
	Backend string `json:"backend"` // memory | sqlite
	DBPath  string `json:"dbPath,omitempty"`
}

type TelegramConfig struct {
	Enabled     bool     `json:"enabled"`
	Token       string   `json:"token"`
	AllowFrom   []string `json:"allowFrom"`
	ParseMode   string   `json:"parseMode"`
	ShowSources bool     `json:"showSources"`
}

type DataConfig struct {
	Dir          string `json:"dir"`          // directory with source PDFs
	FAQFile      string `json:"faqFile"`      // JSON Q&A corpus
	ProductsFile string `json:"productsFile"` // bank product catalog
}

// Defaults returns a config with working defaults for everything that has one.
func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:    "info",
			PromptsFile: "configs/prompts.yaml",
		},
		Providers: ProvidersConfig{
			Completion: ProviderConfig{APIBase: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
			Embeddings: ProviderConfig{APIBase: "https://api.openai.com/v1", Model: "text-embedding-3-small"},
			Reranker:   ProviderConfig{APIBase: "http://localhost:8080"},
		},
		Retrieval: RetrievalConfig{
			Mode:           "hybrid_reranker",
			SemanticK:      6,
			LexicalK:       6,
			WeightSemantic: 0.6,
			WeightBM25:     0.4,
			RerankerTopK:   4,
			FAQThreshold:   0.82,
		},
		Agent: AgentConfig{
			ModelCallLimit:   20,
			ToolCallLimit:    20,
			MaxParallelTools: 5,
			ProtectedTools:   []string{"open_deposit", "open_credit_card"},
		},
		Checkpoint: CheckpointConfig{Backend: "sqlite", DBPath: "data/threads.db"},
		Telegram:   TelegramConfig{ParseMode: "Markdown", ShowSources: true},
		Data: DataConfig{
			Dir:          "data/documents",
			FAQFile:      "data/sberbank_help_documents.json",
			ProductsFile: "data/bank_products.json",
		},
	}
}

// Load reads, env-expands, parses and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Checkpoint.DBPath = ExpandPath(cfg.Checkpoint.DBPath)
	cfg.Data.Dir = ExpandPath(cfg.Data.Dir)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		name := groups[1]
		def := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			def = groups[2]
		}
		val, exists := os.LookupEnv(name)
		if !exists || val == "" {
			if hasDefault {
				return def
			}
			return match
		}
		return val
	})
}

// Validate checks the config. Retrieval problems are ConfigurationError so
// callers can distinguish them from I/O failures.
func Validate(cfg *Config) error {
	switch cfg.Retrieval.Mode {
	case "semantic", "hybrid", "hybrid_reranker":
	default:
		return &domain.ConfigurationError{
			Field:  "retrieval.mode",
			Detail: fmt.Sprintf("unknown mode %q, use semantic, hybrid or hybrid_reranker", cfg.Retrieval.Mode),
		}
	}
	if cfg.Retrieval.WeightSemantic < 0 || cfg.Retrieval.WeightBM25 < 0 {
		return &domain.ConfigurationError{Field: "retrieval.weights", Detail: "weights must be non-negative"}
	}
	if cfg.Retrieval.WeightSemantic+cfg.Retrieval.WeightBM25 <= 0 {
		return &domain.ConfigurationError{Field: "retrieval.weights", Detail: "weights must sum to a positive value"}
	}
	if cfg.Retrieval.SemanticK < 1 || cfg.Retrieval.LexicalK < 1 {
		return &domain.ConfigurationError{Field: "retrieval.k", Detail: "semanticK and lexicalK must be >= 1"}
	}
	if cfg.Retrieval.RerankerTopK < 1 {
		return &domain.ConfigurationError{Field: "retrieval.rerankerTopK", Detail: "must be >= 1"}
	}
	if cfg.Retrieval.FAQThreshold <= 0 || cfg.Retrieval.FAQThreshold > 1 {
		return &domain.ConfigurationError{Field: "retrieval.faqThreshold", Detail: "must be in (0, 1]"}
	}

	var errs []string
	if cfg.Agent.ModelCallLimit < 1 || cfg.Agent.ModelCallLimit > 200 {
		errs = append(errs, "agent.modelCallLimit must be between 1 and 200")
	}
	if cfg.Agent.ToolCallLimit < 1 || cfg.Agent.ToolCallLimit > 200 {
		errs = append(errs, "agent.toolCallLimit must be between 1 and 200")
	}
	if cfg.Agent.MaxParallelTools < 1 {
		errs = append(errs, "agent.maxParallelTools must be >= 1")
	}
	switch cfg.Checkpoint.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, "checkpoint.backend must be one of: memory, sqlite")
	}
	if cfg.Checkpoint.Backend == "sqlite" && cfg.Checkpoint.DBPath == "" {
		errs = append(errs, "checkpoint.dbPath is required for the sqlite backend")
	}
	if cfg.Telegram.Enabled && cfg.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required when telegram is enabled")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
