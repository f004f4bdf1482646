package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/mini-banking-ledger/internal/config"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/mini-banking-ledger/internal/events/memory"
)

// resetFlags resets the global flag.CommandLine to avoid "flag redefined" panic
func resetFlags() {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:       "error",
		IDStrategy:     "sequence",
		IDStart:        10000001,
		KafkaTopic:     "transaction_completed",
		PublishTimeout: time.Second,
		OutboxSize:     10,
	}
}

func TestParseFlags_Default(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd"}
	assert.Equal(t, "config.env", parseFlags())
}

func TestParseFlags_Custom(t *testing.T) {
	resetFlags()
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "-c", "myconfig.env"}
	assert.Equal(t, "myconfig.env", parseFlags())
}

func TestPrintBuildInfo_Output(t *testing.T) {
	var buf bytes.Buffer
	printBuildInfo(&buf)
	assert.Equal(t, "Mini banking ledger version N/A, commit N/A, build N/A\n", buf.String())
}

func TestNewPublisher_MemoryByDefault(t *testing.T) {
	pub, feed := newPublisher(testConfig())

	outbox, ok := pub.(*memory.Outbox)
	require.True(t, ok)
	assert.Same(t, outbox, feed)
}

func TestNewPublisher_KafkaWhenBrokersSet(t *testing.T) {
	cfg := testConfig()
	cfg.KafkaBrokers = []string{"localhost:9092"}

	pub, feed := newPublisher(cfg)

	assert.IsType(t, &kafka.Publisher{}, pub)
	assert.Nil(t, feed)
	assert.NoError(t, pub.Close())
}

func TestRun_ScriptedSession(t *testing.T) {
	in := strings.NewReader(strings.Join([]string{
		"1", "Alice", "100",
		"2", "10000001", "25.50",
		"4", "10000001",
		"9",
	}, "\n") + "\n")
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), testConfig(), in, &out))

	assert.Contains(t, out.String(), "Account Number: 10000001")
	assert.Contains(t, out.String(), "New Balance: $125.50")
	assert.Contains(t, out.String(), "Current Balance: $125.50")
}

func TestRun_InvalidLogLevel(t *testing.T) {
	cfg := testConfig()
	cfg.LogLevel = "loud"

	err := run(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "initialize logger")
}

func TestRun_InvalidIDStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.IDStrategy = "random"

	err := run(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}
