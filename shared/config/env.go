// Package config holds the environment helpers both services build their
// typed configuration from.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads .env from the working directory when present. It reports
// whether a file was loaded; real environment variables always win.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

func GetEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	v, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetList splits a comma separated value, dropping empty items.
func GetList(key, fallback string) []string {
	var out []string
	for _, item := range strings.Split(GetEnv(key, fallback), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Redis is the connection block shared by both services.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

func LoadRedis() Redis {
	return Redis{
		Addr:     GetEnv("REDIS_ADDR", "localhost:6379"),
		Password: GetEnv("REDIS_PASSWORD", ""),
		DB:       GetInt("REDIS_DB", 0),
	}
}

const (
	EventBusRedis = "redis"
	EventBusKafka = "kafka"
)

// EventBus selects and configures the client event transport.
type EventBus struct {
	Kind         string
	KafkaBrokers []string
	Topic        string
	Group        string
}

func LoadEventBus(defaultGroup string) EventBus {
	kind := strings.ToLower(GetEnv("EVENT_BUS", EventBusRedis))
	if kind != EventBusKafka {
		kind = EventBusRedis
	}
	return EventBus{
		Kind:         kind,
		KafkaBrokers: GetList("KAFKA_BROKERS", "localhost:9092"),
		Topic:        GetEnv("CLIENT_EVENTS_TOPIC", "client-events"),
		Group:        GetEnv("CLIENT_EVENTS_GROUP", defaultGroup),
	}
}
