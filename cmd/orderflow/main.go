// Command orderflow is the marketplace order client: it signs in, lists and
// advances orders according to the caller's role, chats with other users and
// prints receipts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/api"
	"github.com/marketplace/orderflow/internal/infrastructure/config"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Version information (populated at build time)
var (
	version   = "dev"
	gitCommit = "unknown"
)

// CLI flags
var (
	configPath  string
	verbose     bool
	showVersion bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to the configuration file")
	flag.StringVar(&configPath, "c", "", "Path to the configuration file (shorthand)")
	flag.BoolVar(&verbose, "verbose", false, "Log requests and state changes to stderr")
	flag.BoolVar(&verbose, "v", false, "Log requests and state changes (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `orderflow - marketplace order client

USAGE:
    orderflow [options] <command> [arguments]

OPTIONS:
    -config, -c <path>    Configuration file (default: ./config.toml, then ~/.orderflow/config.toml)
    -verbose, -v          Log requests and state changes to stderr
    -version              Show version information

COMMANDS:
`)
	for _, c := range commands {
		usage := c.name
		if c.args != "" {
			usage += " " + c.args
		}
		fmt.Fprintf(os.Stderr, "    %s\n        %s\n", usage, c.summary)
	}
	fmt.Fprintf(os.Stderr, `
ENVIRONMENT:
    ORDERFLOW_API_BASE_URL    Backend address (overrides the config file)

EXAMPLES:
    orderflow login buyer@example.com secret
    orderflow orders -status pending
    orderflow act g-1001 approve
    orderflow receipt g-1003 receipt.pdf
`)
}

func main() {
	flag.Parse()
	if showVersion {
		fmt.Printf("orderflow %s (%s)\n", version, gitCommit)
		return
	}
	os.Exit(run(flag.Args(), os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "orderflow: %v\n", err)
		return 1
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = "warn"
	if verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "orderflow: initializing logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		fmt.Fprintf(stderr, "orderflow: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	a, err := newApp(ctx, cfg, log, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "orderflow: %v\n", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("Error releasing resources", zap.Error(err))
		}
	}()

	if err := dispatch(ctx, a, args); err != nil {
		fmt.Fprintf(stderr, "orderflow: %s\n", describe(err))
		return exitCode(err)
	}
	return 0
}

// describe renders an error the way a user should read it
func describe(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

func exitCode(err error) int {
	var usage *usageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}
