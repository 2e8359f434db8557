// Package main is the entry point for the schemareg CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/unbywyd/schemareg/internal/config"
	"github.com/unbywyd/schemareg/internal/dedupe"
	"github.com/unbywyd/schemareg/internal/engine"
	"github.com/unbywyd/schemareg/internal/loader"
	"github.com/unbywyd/schemareg/internal/metrics"
	"github.com/unbywyd/schemareg/internal/registry"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	schemasDir string
	pattern    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schemareg",
		Short: "Schema registration and dependency resolution engine",
		Long: `schemareg loads schema definitions, resolves the references between
them, detects structural duplicates, and commits everything into a JSON
Schema validation engine in dependency-safe order.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&schemasDir, "dir", "d", "", "Schema directory (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&pattern, "pattern", "p", "", "Glob pattern for schema files (overrides config)")

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register all schemas and flush them into the engine",
		RunE:  runRegister,
	}
	registerCmd.Flags().Bool("print-order", false, "Print the commit order")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Scan schemas for structural duplicates",
		RunE:  runCheck,
	}

	validateCmd := &cobra.Command{
		Use:   "validate <schema-id> <document>",
		Short: "Validate a JSON or YAML document against a registered schema",
		Args:  cobra.ExactArgs(2),
		RunE:  runValidate,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-register schemas whenever the schema directory changes",
		RunE:  runWatch,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("schemareg %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}

	rootCmd.AddCommand(registerCmd, checkCmd, validateCmd, watchCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if schemasDir != "" {
		cfg.Schemas.Dir = schemasDir
	}
	if pattern != "" {
		cfg.Schemas.Pattern = pattern
	}

	var out io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
		}
	}

	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// buildRegistry wires the engine, detector, and metrics into a registry.
func buildRegistry(cfg *config.Config, logger *slog.Logger) (*registry.Registry, *engine.Compiler, *metrics.Metrics) {
	eng := engine.NewCompiler()
	opts := []registry.Option{registry.WithLogger(logger)}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, registry.WithMetrics(m))
	}
	if cfg.Duplicate.Enabled {
		opts = append(opts, registry.WithDetector(dedupe.New(dedupe.Config{})))
	}
	return registry.New(eng, opts...), eng, m
}

// discoverAndFlush is the registration pipeline shared by the commands.
func discoverAndFlush(cfg *config.Config, logger *slog.Logger, reg *registry.Registry, eng *engine.Compiler) error {
	registered, err := loader.New(logger).Discover(reg, cfg.Schemas.Dir, cfg.Schemas.Pattern)
	if err != nil {
		return err
	}
	logger.Info("schemas discovered",
		slog.Int("count", len(registered)),
		slog.String("dir", cfg.Schemas.Dir),
	)
	if err := reg.Flush(); err != nil {
		return err
	}
	return eng.CompileAll()
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	reg, eng, m := buildRegistry(cfg, logger)

	if m != nil {
		go serveMetrics(cfg.Metrics.Address, m, logger)
	}

	if err := discoverAndFlush(cfg, logger, reg, eng); err != nil {
		logger.Error("registration failed", slog.String("error", err.Error()))
		return err
	}

	if printOrder, _ := cmd.Flags().GetBool("print-order"); printOrder {
		for _, id := range reg.CommitOrder() {
			fmt.Println(id)
		}
	}
	logger.Info("all schemas committed", slog.Int("count", len(reg.CommitOrder())))
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	cfg.Duplicate.Enabled = true
	reg, _, _ := buildRegistry(cfg, logger)

	if _, err := loader.New(logger).Discover(reg, cfg.Schemas.Dir, cfg.Schemas.Pattern); err != nil {
		return err
	}

	reports := reg.Reports()
	if len(reports) == 0 {
		fmt.Println("no structural duplicates found")
		return nil
	}
	for _, r := range reports {
		fmt.Printf("%s duplicates %s (fingerprint %s)\n", r.SchemaID, r.DuplicateOf, r.Fingerprint)
	}
	return fmt.Errorf("%d duplicate pair(s) found", len(reports))
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	reg, eng, _ := buildRegistry(cfg, logger)
	if err := discoverAndFlush(cfg, logger, reg, eng); err != nil {
		return err
	}

	id, docPath := args[0], args[1]
	doc, err := readDocument(docPath)
	if err != nil {
		return err
	}
	if err := eng.Validate(id, doc); err != nil {
		return fmt.Errorf("document does not satisfy %q: %w", id, err)
	}
	fmt.Printf("%s: valid against %s\n", docPath, id)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	run := func() {
		// Each pass gets a fresh registry and engine: committed schemas
		// cannot be withdrawn, and edited files would otherwise conflict
		// with their previous definitions.
		reg, eng, _ := buildRegistry(cfg, logger)
		if err := discoverAndFlush(cfg, logger, reg, eng); err != nil {
			logger.Error("registration failed", slog.String("error", err.Error()))
			return
		}
		logger.Info("schemas re-registered", slog.Int("count", len(reg.CommitOrder())))
	}
	run()

	w, err := loader.NewWatcher(cfg.Schemas.Dir, cfg.Watch.DebounceDuration(), logger, run)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("watching for schema changes", slog.String("dir", cfg.Schemas.Dir))
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	logger.Info("metrics endpoint listening", slog.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint failed", slog.String("error", err.Error()))
	}
}

// readDocument decodes a JSON or YAML instance document.
func readDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc any
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: invalid YAML: %w", path, err)
		}
		// Re-encode through JSON so validation sees JSON-shaped values.
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		doc = nil
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", path, err)
	}
	return doc, nil
}
