package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	LogLevel       string        `validate:"required,oneof=debug info warn error dpanic panic fatal"`
	IDStrategy     string        `validate:"required,oneof=sequence uuid"`
	IDStart        uint64        `validate:"gte=1"`
	KafkaBrokers   []string      `validate:"dive,hostname_port"`
	KafkaTopic     string        `validate:"required"`
	PublishTimeout time.Duration `validate:"gt=0"`
	OutboxSize     int           `validate:"gte=1,lte=10000"`
}

// KafkaEnabled reports whether events should go to Kafka instead of the
// in-memory outbox.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads the env file at path (a missing file is not an error), then the
// process environment, which wins over the file.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("ID_STRATEGY", "sequence")
	v.SetDefault("ID_START", 10000001)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "transaction_completed")
	v.SetDefault("PUBLISH_TIMEOUT", "2s")
	v.SetDefault("OUTBOX_SIZE", 100)
	v.AutomaticEnv()

	cfg := &Config{
		LogLevel:       strings.ToLower(v.GetString("LOG_LEVEL")),
		IDStrategy:     strings.ToLower(v.GetString("ID_STRATEGY")),
		IDStart:        v.GetUint64("ID_START"),
		KafkaBrokers:   splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:     v.GetString("KAFKA_TOPIC"),
		PublishTimeout: v.GetDuration("PUBLISH_TIMEOUT"),
		OutboxSize:     v.GetInt("OUTBOX_SIZE"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
