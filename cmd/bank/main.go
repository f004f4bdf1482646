package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/cli"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/config"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/events/memory"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/idgen"
	interfaces "github.com/sheikh-saqib/mini-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/logger"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/service"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

// shutdownTimeout bounds how long pending events may take to flush on exit.
const shutdownTimeout = 5 * time.Second

func main() {
	printBuildInfo(os.Stdout)
	configPath := parseFlags()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Stdin, os.Stdout)
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("application stopped with error: %v", err)
	}
}

func printBuildInfo(w io.Writer) {
	fmt.Fprintf(w, "Mini banking ledger version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer lg.Sync()

	ids, err := idgen.New(cfg.IDStrategy, cfg.IDStart)
	if err != nil {
		return err
	}

	publisher, feed := newPublisher(cfg)
	if cfg.KafkaEnabled() {
		lg.Infow("Publishing transaction events to Kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		lg.Infow("Keeping transaction events in memory", "size", cfg.OutboxSize)
	}

	svc := service.NewBankService(ids, publisher, lg)

	var opts []cli.Option
	if feed != nil {
		opts = append(opts, cli.WithFeed(feed))
	}
	runErr := cli.NewShell(svc, in, out, opts...).Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.Close(closeCtx); err != nil {
		lg.Errorw("Failed to flush transaction events", "error", err, "dropped", svc.Dropped())
	}
	return runErr
}

// newPublisher picks Kafka when brokers are configured. Otherwise events are
// kept in an in-memory outbox, which also backs the recent activity screen.
func newPublisher(cfg *config.Config) (interfaces.EventPublisher, cli.Feed) {
	if cfg.KafkaEnabled() {
		return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.PublishTimeout), nil
	}
	outbox := memory.NewOutbox(cfg.OutboxSize)
	return outbox, outbox
}
