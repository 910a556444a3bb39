package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sushant-115/pagestore/core/storage_engine/pagefile"
	internaltelemetry "github.com/sushant-115/pagestore/internal/telemetry"
	"github.com/sushant-115/pagestore/pkg/config"
	"github.com/sushant-115/pagestore/pkg/logger"
	"github.com/sushant-115/pagestore/pkg/telemetry"
	"go.uber.org/zap"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML config file")
	logLevel    = flag.String("log_level", "", "Override logger.level (debug, info, warn, error)")
	metricsPort = flag.Int("metrics_port", -1, "Override telemetry.prometheus_port and enable telemetry")
	syncWrites  = flag.Bool("sync_writes", false, "Override storage.sync_writes")
	historyFile = flag.String("history_file", filepath.Join(os.TempDir(), ".pagestore_cli_history"), "Interactive history file")
)

func main() {
	log.SetFlags(0) // No flags for simple CLI output
	flag.Parse()
	os.Exit(run())
}

// run owns every deferred cleanup so that main can exit with a status code.
func run() int {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}

	zlogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("CRITICAL: Can't initialize zap logger: %v", err)
	}
	defer func() { _ = logger.Sync(zlogger) }()

	tel, shutdown, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		zlogger.Error("CRITICAL: Failed to initialize telemetry", zap.Error(err))
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			zlogger.Warn("Failed to shut down telemetry", zap.Error(err))
		}
	}()
	if tel.MetricsAddr != "" {
		zlogger.Info("Serving metrics", zap.String("addr", "http://"+tel.MetricsAddr+"/metrics"))
	}

	metrics, err := internaltelemetry.NewPageFileMetrics(tel.Meter)
	if err != nil {
		zlogger.Error("CRITICAL: Failed to register page file metrics", zap.Error(err))
		return 1
	}

	sm := pagefile.NewStorageManager(cfg.Storage, zlogger, metrics)
	sess := newSession(sm, os.Stdout, tel.Tracer, zlogger.Named("cli"))
	defer sess.close()

	ctx := context.Background()
	if args := flag.Args(); len(args) > 0 {
		// Process commands from command-line arguments, separated by ';'.
		return runOneShot(ctx, sess, strings.Join(args, " "))
	}
	if err := runInteractive(ctx, sess); err != nil {
		zlogger.Error("Interactive session failed", zap.Error(err))
		return 1
	}
	return 0
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log_level":
			cfg.Logger.Level = *logLevel
		case "metrics_port":
			cfg.Telemetry.Enabled = true
			cfg.Telemetry.PrometheusPort = *metricsPort
		case "sync_writes":
			cfg.Storage.SyncWrites = *syncWrites
		}
	})
	return cfg, cfg.Validate()
}

// runOneShot runs every command in line and returns the process exit code:
// the return code of the first failing page file operation, 1 for other
// failures, 0 otherwise.
func runOneShot(ctx context.Context, sess *session, line string) int {
	for _, cmd := range splitCommands(line) {
		err := sess.processCommand(ctx, cmd)
		if errors.Is(err, errQuit) {
			return 0
		}
		if err != nil {
			if rc := pagefile.KindOf(err).ReturnCode(); rc > 0 {
				return rc
			}
			return 1
		}
	}
	return 0
}

func runInteractive(ctx context.Context, sess *session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pagestore> ",
		HistoryFile:     *historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start line editor: %w", err)
	}
	defer rl.Close()
	sess.out = rl.Stdout()

	fmt.Fprintln(sess.out, "pagestore CLI (interactive mode). Type 'help' for commands, 'exit' or 'quit' to leave.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("error reading input: %w", err)
		}

		for _, cmd := range splitCommands(line) {
			if err := sess.processCommand(ctx, cmd); errors.Is(err, errQuit) {
				fmt.Fprintln(sess.out, "Exiting pagestore CLI.")
				return nil
			}
		}
	}
	fmt.Fprintln(sess.out, "\nExiting pagestore CLI.")
	return nil
}
