package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bdougie/slidecap/internal/analyzer"
	"github.com/bdougie/slidecap/internal/capture"
	"github.com/bdougie/slidecap/internal/config"
	"github.com/bdougie/slidecap/internal/detector"
	"github.com/bdougie/slidecap/internal/extractor"
	"github.com/bdougie/slidecap/internal/metrics"
	"github.com/bdougie/slidecap/internal/presence"
	"github.com/bdougie/slidecap/internal/storage"
	"github.com/bdougie/slidecap/internal/title"
	"github.com/bdougie/slidecap/internal/vision"
	"github.com/bdougie/slidecap/internal/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch a display and capture new slides (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// addCaptureFlags registers the capture flags on cmd and binds them to viper.
// They are persistent so `slidecap` and `slidecap run` accept the same flags.
func addCaptureFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.IntP("display", "d", 0, "Display index to capture")
	flags.Duration("interval", 2*time.Second, "Time between polls")
	flags.StringP("mode", "m", string(detector.ModeText), "Change detection mode: text or visual")
	flags.StringP("output", "o", "captured_slides", "Output directory")
	flags.Bool("debug", false, "Save OCR preprocessing stages")
	flags.String("provider", config.ProviderDeepSeek, "Title provider: deepseek, ollama or none")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	bind := map[string]string{
		"display":        "display",
		"interval":       "interval",
		"mode":           "mode",
		"output_dir":     "output",
		"debug":          "debug",
		"title.provider": "provider",
		"metrics_addr":   "metrics-addr",
	}
	for key, flag := range bind {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

func runCapture(cmd *cobra.Command) error {
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	if err := cfg.Initialize(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Detector handles are created once for the whole session
	faces, err := vision.NewFaceDetector(cfg.Cascade)
	if err != nil {
		return err
	}
	defer faces.Close()

	engine, err := vision.NewEngine(cfg.OCRLanguage)
	if err != nil {
		return err
	}
	defer engine.Close()

	generator, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
	}

	store := storage.NewStorage(cfg.OutputDir, logger)
	ex := extractor.NewExtractor(vision.Preprocessor{}, engine, cfg.DebugDir(), logger)
	titles := title.NewSynthesizer(generator, title.Options{
		MaxLength:     cfg.MaxTitleLength,
		Timeout:       cfg.Title.Timeout,
		RatePerMinute: cfg.Title.RatePerMinute,
	}, logger)

	processor := analyzer.NewProcessor(ex, titles, store, analyzer.Options{
		QueueSize: cfg.QueueSize,
		Debug:     cfg.Debug,
		Metrics:   m,
	}, logger)
	m.WatchQueue(processor.Len)

	w := watcher.New(
		capture.Screen{Display: cfg.Display},
		presence.NewGate(faces, cfg.FaceThreshold, logger),
		detector.New(cfg.Mode, cfg.SSIMThreshold, cfg.TextThreshold, ex),
		store,
		processor,
		watcher.Options{Interval: cfg.Interval, Metrics: m},
		logger,
	)

	logger.Info("slide capture configured",
		"display", cfg.Display,
		"mode", cfg.Mode,
		"output", cfg.OutputDir,
		"provider", cfg.Title.Provider,
		"debug", cfg.Debug,
	)

	// The worker is not drained: a cancelled session leaves queued slides unrenamed
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	g.Go(func() error { return processor.Run(gctx) })
	if m != nil {
		g.Go(func() error { return m.Serve(gctx, cfg.MetricsAddr, logger) })
	}

	runErr := g.Wait()
	if err := store.Flush(); err != nil {
		logger.Error("failed to flush session index", "error", err)
	}
	if runErr != nil {
		logger.Error("slide capture failed", "error", runErr)
		return runErr
	}
	logger.Info("slide capture finished", "pending", processor.Len())
	return nil
}

// newGenerator picks the title generator for the configured provider. A nil
// generator makes the synthesizer use its local fallback.
func newGenerator(ctx context.Context, cfg config.Config, logger *slog.Logger) (title.Generator, error) {
	switch cfg.Title.Provider {
	case config.ProviderOllama:
		gen, err := title.NewOllamaGenerator(ctx, title.OllamaConfig{Model: cfg.Ollama.Model}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama: %w", err)
		}
		return gen, nil
	case config.ProviderDeepSeek:
		return title.NewChatClient(title.ChatConfig{
			Endpoint:    cfg.Title.Endpoint,
			Model:       cfg.Title.Model,
			APIKey:      cfg.Title.APIKey,
			Temperature: cfg.Title.Temperature,
			MaxTokens:   cfg.Title.MaxTokens,
		}, &http.Client{}), nil
	default:
		return nil, nil
	}
}
