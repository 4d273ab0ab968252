package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                 string
	HTTPAddr            string
	MongoURI            string
	MongoDB             string
	MongoConnectTimeout time.Duration
	KafkaBrokers        []string
	KafkaGroupID        string
	KafkaTopic          string
	RetryMaxAttempts    int
	RetryInitialWait    time.Duration
	ResyncRetryDelay    time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:          getEnv("APP_ENV", "dev"),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      getEnv("MONGO_DB", "devlink"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "devlink-chat"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "chat.message.created"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		for _, raw := range strings.Split(brokers, ",") {
			if b := strings.TrimSpace(raw); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	attempts, err := parseIntEnv("RETRY_MAX_ATTEMPTS", 3)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryMaxAttempts = attempts

	initialWait, err := parseDurationEnv("RETRY_INITIAL_WAIT", time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryInitialWait = initialWait

	resyncDelay, err := parseDurationEnv("RESYNC_RETRY_DELAY", time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.ResyncRetryDelay = resyncDelay

	mongoTimeout, err := parseDurationEnv("MONGO_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.MongoConnectTimeout = mongoTimeout

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
