package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/n1kko777/sber-agents/internal/agent"
	"github.com/n1kko777/sber-agents/internal/channel"
	"github.com/n1kko777/sber-agents/internal/checkpoint"
	"github.com/n1kko777/sber-agents/internal/config"
	"github.com/n1kko777/sber-agents/internal/domain"
	"github.com/n1kko777/sber-agents/internal/index"
	"github.com/n1kko777/sber-agents/internal/ingest"
	"github.com/n1kko777/sber-agents/internal/provider"
	"github.com/n1kko777/sber-agents/internal/retrieval"
	"github.com/n1kko777/sber-agents/internal/tool"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "sberagent",
		Short: "Bank assistant: hybrid document retrieval plus a tool-calling agent",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.json", "path to config.json")

	root.AddCommand(serveCmd())
	root.AddCommand(askCmd())
	root.AddCommand(ragCmd())
	root.AddCommand(indexCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("sberagent", version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.cfg.Telegram.Enabled {
				return fmt.Errorf("telegram is disabled in config, enable telegram.enabled to serve")
			}
			tg := channel.NewTelegram(channel.TelegramConfig{
				Token:       app.cfg.Telegram.Token,
				AllowFrom:   app.cfg.Telegram.AllowFrom,
				ParseMode:   app.cfg.Telegram.ParseMode,
				ShowSources: app.cfg.Telegram.ShowSources,
				Agent:       app.loop,
				Logger:      logger,
			})
			return tg.Start(ctx)
		},
	}
}

func askCmd() *cobra.Command {
	var threadID string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			question := args[0]
			result, err := app.loop.Ask(ctx, threadID, question)
			if err != nil {
				return err
			}

			if result.Interrupt != nil {
				fmt.Printf("Требуется подтверждение: %s %v\n", result.Interrupt.ToolName, result.Interrupt.ToolArgs)
				fmt.Print("Выполнить? [yes/no]: ")
				stdin := bufio.NewReader(os.Stdin)
				response, _ := stdin.ReadString('\n')
				response = strings.TrimSpace(response)
				decision := domain.DecisionReject
				var reason string
				if response == "yes" || response == "y" {
					decision = domain.DecisionApprove
				} else {
					fmt.Print("Причина отклонения (Enter, чтобы пропустить): ")
					reason, _ = stdin.ReadString('\n')
					reason = strings.TrimSpace(reason)
				}
				result, err = app.loop.Resume(ctx, threadID, decision, reason)
				if err != nil {
					return err
				}
			}

			fmt.Println(result.Answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "cli", "conversation thread identifier")
	return cmd
}

func ragCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rag [question]",
		Short: "Answer a question directly from the documents, without the agent loop",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			question := args[0]
			docs, err := app.pipeline.Retrieve(ctx, nil, question)
			if err != nil {
				return err
			}
			answer, err := app.synthesizer.Answer(ctx, question, docs)
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		},
	}
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Load documents and build the retrieval indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			embedder := provider.NewEmbedder(provider.EmbedderConfig{
				APIKey:  cfg.Providers.Embeddings.APIKey,
				APIBase: cfg.Providers.Embeddings.APIBase,
				Model:   cfg.Providers.Embeddings.Model,
			})
			runtime := index.NewRuntime(embedder.Func(), logger)

			docs, err := ingest.Load(cfg.Data.Dir, cfg.Data.FAQFile, logger)
			if err != nil {
				return err
			}
			chunks, err := runtime.Reindex(ctx, docs)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d chunks\n", chunks)
			return nil
		},
	}
}

// app bundles everything a command needs after wiring.
type app struct {
	cfg         *config.Config
	loop        *agent.Loop
	pipeline    *retrieval.Pipeline
	synthesizer *retrieval.Synthesizer
	store       domain.CheckpointStore
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close checkpoint store", "error", err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Warn("config not loaded, using defaults", "path", configPath, "err", err)
		cfg = config.Defaults()
	}
	setLogLevel(cfg.General.LogLevel)
	return cfg, nil
}

func setLogLevel(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// buildApp wires the full stack: providers, indexes, retrieval pipeline,
// tools, checkpoint store and the agent loop. Ingestion runs at startup so
// the first question already retrieves against a complete snapshot.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	prompts := config.DefaultPrompts()
	if cfg.General.PromptsFile != "" {
		if loaded, err := config.LoadPrompts(cfg.General.PromptsFile); err != nil {
			logger.Warn("prompts file not loaded, using defaults", "path", cfg.General.PromptsFile, "err", err)
		} else {
			prompts = loaded
		}
	}

	completion := provider.NewOpenAI(provider.OpenAIConfig{
		APIKey:  cfg.Providers.Completion.APIKey,
		APIBase: cfg.Providers.Completion.APIBase,
		Model:   cfg.Providers.Completion.Model,
		Logger:  logger,
	})
	embedder := provider.NewEmbedder(provider.EmbedderConfig{
		APIKey:  cfg.Providers.Embeddings.APIKey,
		APIBase: cfg.Providers.Embeddings.APIBase,
		Model:   cfg.Providers.Embeddings.Model,
	})

	runtime := index.NewRuntime(embedder.Func(), logger)
	docs, err := ingest.Load(cfg.Data.Dir, cfg.Data.FAQFile, logger)
	if err != nil {
		return nil, err
	}
	if _, err := runtime.Reindex(ctx, docs); err != nil {
		return nil, err
	}

	rerankerBase := cfg.Providers.Reranker.APIBase
	rerankerKey := cfg.Providers.Reranker.APIKey
	pipeline := &retrieval.Pipeline{
		Runtime: runtime,
		Rewriter: &retrieval.Rewriter{
			Client: completion,
			Prompt: prompts.QueryTransform,
			Model:  cfg.Providers.Completion.Model,
		},
		Reranker: &retrieval.Reranker{
			NewScorer: func() (domain.PairScorer, error) {
				if rerankerBase == "" {
					return nil, &domain.DependencyError{
						Service: "reranker",
						Reason:  domain.ReasonUnsupportedEndpoint,
						Err:     fmt.Errorf("no reranker endpoint configured"),
					}
				}
				return provider.NewCrossEncoder(provider.CrossEncoderConfig{
					APIBase: rerankerBase,
					APIKey:  rerankerKey,
				}), nil
			},
			TopK:   cfg.Retrieval.RerankerTopK,
			Logger: logger,
		},
		Mode:         cfg.Retrieval.Mode,
		SemanticK:    cfg.Retrieval.SemanticK,
		LexicalK:     cfg.Retrieval.LexicalK,
		WeightSem:    cfg.Retrieval.WeightSemantic,
		WeightBM25:   cfg.Retrieval.WeightBM25,
		TopK:         cfg.Retrieval.RerankerTopK,
		FAQThreshold: cfg.Retrieval.FAQThreshold,
		Logger:       logger,
	}

	registry, err := registerTools(cfg, pipeline)
	if err != nil {
		return nil, err
	}

	var store domain.CheckpointStore
	switch cfg.Checkpoint.Backend {
	case "sqlite":
		store, err = checkpoint.NewSQLiteStore(cfg.Checkpoint.DBPath, logger)
		if err != nil {
			return nil, err
		}
	default:
		store = checkpoint.NewMemoryStore()
	}

	loop := agent.NewLoop(agent.LoopConfig{
		Client:           completion,
		Tools:            registry,
		Store:            store,
		Logger:           logger,
		SystemPrompt:     prompts.Agent,
		Model:            cfg.Providers.Completion.Model,
		ModelCallLimit:   cfg.Agent.ModelCallLimit,
		ToolCallLimit:    cfg.Agent.ToolCallLimit,
		MaxParallelTools: cfg.Agent.MaxParallelTools,
	})

	synthesizer := &retrieval.Synthesizer{
		Client: completion,
		Prompt: prompts.Answering,
		Model:  cfg.Providers.Completion.Model,
	}

	return &app{cfg: cfg, loop: loop, pipeline: pipeline, synthesizer: synthesizer, store: store}, nil
}

func registerTools(cfg *config.Config, pipeline *retrieval.Pipeline) (*tool.Registry, error) {
	registry := tool.NewRegistry(logger)

	registry.Register(tool.NewKnowledgeSearchTool(pipeline, logger))
	registry.Register(tool.NewCurrencyTool(tool.NewCBRRateSource()))
	registry.Register(tool.NewDepositCalculatorTool())

	if cfg.Data.ProductsFile != "" {
		products, err := tool.NewProductSearchTool(cfg.Data.ProductsFile)
		if err != nil {
			logger.Warn("product catalog not loaded", "path", cfg.Data.ProductsFile, "err", err)
		} else {
			registry.Register(products)
		}
	}

	accounts := tool.NewAccountService(logger)
	registry.Register(tool.NewOpenDepositTool(accounts))
	registry.Register(tool.NewOpenCardTool(accounts))

	registry.Protect(cfg.Agent.ProtectedTools...)
	return registry, nil
}
