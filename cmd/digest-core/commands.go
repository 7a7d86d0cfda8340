package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/digest-core/internal/adapters/driven/ai"
	"github.com/custodia-labs/digest-core/internal/adapters/driven/auth"
	"github.com/custodia-labs/digest-core/internal/adapters/driven/pdf"
	"github.com/custodia-labs/digest-core/internal/adapters/driving/http"
	"github.com/custodia-labs/digest-core/internal/config"
	"github.com/custodia-labs/digest-core/internal/core/domain"
	"github.com/custodia-labs/digest-core/internal/core/ports/driven"
	"github.com/custodia-labs/digest-core/internal/core/ports/driving"
	"github.com/custodia-labs/digest-core/internal/core/services"
	"github.com/custodia-labs/digest-core/internal/runtime"
	"github.com/custodia-labs/digest-core/internal/worker"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "digest-core",
		Short: "Asynchronous PDF text extraction and summarization",
		Long: `digest-core accepts PDF uploads over HTTP and moves each document through
extraction and summarization workers connected by a durable work queue.

Run the API and the two workers as separate processes, or all of them
together with "digest-core all".`,
		SilenceUsage: true,
	}

	root.AddCommand(
		roleCmd("api", "Serve the HTTP API", runAPI),
		roleCmd("extractor", "Run the extraction worker", runExtractor),
		roleCmd("summarizer", "Run the summarization worker", runSummarizer),
		roleCmd("all", "Run the API and both workers in one process", runAll),
		newTokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

// app is what every long-running role shares
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	backends *runtime.Backends
}

type roleFunc func(ctx context.Context, a *app) error

// roleCmd wraps a long-running role with config loading, backend setup and
// signal handling.
func roleCmd(use, short string, run roleFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Printf("%s starting in %s mode", version, use)

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := cfg.NewLogger().With("role", use)
			slog.SetDefault(logger)

			backends, err := runtime.OpenBackends(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open backends: %w", err)
			}
			defer func() {
				if err := backends.Close(); err != nil {
					logger.Warn("closing backends", "error", err)
				}
			}()

			err = run(ctx, &app{cfg: cfg, logger: logger, backends: backends})
			log.Printf("%s mode stopped", use)
			return err
		},
	}
}

func runAPI(ctx context.Context, a *app) error {
	deps := http.Deps{
		Pipeline: newPipeline(a),
		Checks:   make(map[string]http.Pinger, len(a.backends.Checks)),
		Logger:   a.logger,
	}
	for name, check := range a.backends.Checks {
		deps.Checks[name] = check
	}
	if a.cfg.JWTSecret != "" {
		deps.Auth = auth.NewAdapter(a.cfg.JWTSecret)
	} else {
		a.logger.Warn("API_JWT_SECRET not set, API is open")
	}

	server := http.NewServer(http.Config{
		Host:           "0.0.0.0",
		Port:           a.cfg.Port,
		Version:        version,
		CORSOrigins:    a.cfg.CORSOrigins,
		MaxUploadBytes: a.cfg.Pipeline.MaxUploadBytes,
	}, deps)
	return server.Start(ctx)
}

func runExtractor(ctx context.Context, a *app) error {
	caps := runtime.NewCapabilities()
	defer caps.Close()

	extractor, err := ai.NewFactory().CreateExtractor(ctx, &a.cfg.AI)
	if err != nil {
		return fmt.Errorf("create extractor: %w", err)
	}
	caps.SetExtractor(extractor)

	return newExtractionWorker(a, caps).Run(ctx)
}

func runSummarizer(ctx context.Context, a *app) error {
	caps := runtime.NewCapabilities()
	defer caps.Close()

	summarizer, err := ai.NewFactory().CreateSummarizer(ctx, &a.cfg.AI)
	if err != nil {
		return fmt.Errorf("create summarizer: %w", err)
	}
	caps.SetSummarizer(summarizer)

	return newSummarizationWorker(a, caps).Run(ctx)
}

func runAll(ctx context.Context, a *app) error {
	caps := runtime.NewCapabilities()
	defer caps.Close()

	if err := caps.Load(ctx, ai.NewFactory(), a.cfg.AI); err != nil {
		return fmt.Errorf("load AI capabilities: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runAPI(ctx, a) })
	g.Go(func() error { return newExtractionWorker(a, caps).Run(ctx) })
	g.Go(func() error { return newSummarizationWorker(a, caps).Run(ctx) })
	return g.Wait()
}

func newPipeline(a *app) driving.PipelineService {
	var inspector driven.PDFInspector
	if a.cfg.InspectPDFs {
		inspector = pdf.NewInspector()
	}
	return services.NewPipelineService(services.PipelineServiceConfig{
		Documents: a.backends.Documents,
		Queue:     a.backends.Queue,
		Blobs:     a.backends.Blobs,
		Inspector: inspector,
		Settings:  a.cfg.Pipeline,
		Logger:    a.logger,
	})
}

func newExtractionWorker(a *app, extractor driven.Extractor) *worker.Worker {
	return worker.NewWorker(worker.WorkerConfig{
		Queue: a.backends.Queue,
		Kind:  domain.JobKindExtract,
		Handler: services.NewExtractionService(services.ExtractionServiceConfig{
			Documents: a.backends.Documents,
			Queue:     a.backends.Queue,
			Blobs:     a.backends.Blobs,
			Extractor: extractor,
			Settings:  a.cfg.Pipeline,
			Logger:    a.logger,
		}),
		Logger:         a.logger,
		Concurrency:    a.cfg.WorkerCount,
		DequeueTimeout: a.cfg.DequeueTimeout,
	})
}

func newSummarizationWorker(a *app, summarizer driven.Summarizer) *worker.Worker {
	return worker.NewWorker(worker.WorkerConfig{
		Queue: a.backends.Queue,
		Kind:  domain.JobKindSummarize,
		Handler: services.NewSummarizationService(services.SummarizationServiceConfig{
			Documents:  a.backends.Documents,
			Summarizer: summarizer,
			Settings:   a.cfg.Pipeline,
			Logger:     a.logger,
		}),
		Logger:         a.logger,
		Concurrency:    a.cfg.WorkerCount,
		DequeueTimeout: a.cfg.DequeueTimeout,
	})
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with API_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("%w: API_JWT_SECRET is not set", domain.ErrInvalidInput)
			}

			token, err := auth.NewAdapter(cfg.JWTSecret).GenerateToken(auth.NewClaims(subject, ttl))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
