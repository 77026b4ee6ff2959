package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for every binary. Values are read once at startup.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"5001"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Slack
	SlackBotToken   string        `env:"SLACK_BOT_TOKEN"`
	SlackAppToken   string        `env:"SLACK_APP_TOKEN"` // xapp- token, Socket Mode only
	SlackChannel    string        `env:"SLACK_CHANNEL_ID"`
	SlashCommands   []string      `env:"SLASH_COMMANDS" envDefault:"/summarizeurl,/summarize" envSeparator:","`
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`

	// Extraction
	ExtractTimeout  time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"10s"`
	ExtractMaxBytes int64         `env:"EXTRACT_MAX_BYTES" envDefault:"5242880"` // 5MB
	MaxContentChars int           `env:"MAX_CONTENT_CHARS" envDefault:"3500"`
	MinContentChars int           `env:"MIN_CONTENT_CHARS" envDefault:"50"`

	// Queue
	QueueProvider     string `env:"QUEUE_PROVIDER" envDefault:"memory"` // "memory" (in-process) or "nats"
	QueueURL          string `env:"QUEUE_URL"`
	QueueBuffer       int    `env:"QUEUE_BUFFER" envDefault:"64"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"4"`

	// LLM
	LLMProvider string `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" or "cohere"
	OpenAIKey   string `env:"OPENAI_API_KEY"`
	CohereKey   string `env:"COHERE_API_KEY"`
	LLMModel    string `env:"LLM_MODEL"` // empty selects the provider default

	// Last-result artifact
	ArtifactProvider string `env:"ARTIFACT_PROVIDER" envDefault:"none"` // "none", "file", "redis" or "s3"
	ArtifactPath     string `env:"ARTIFACT_PATH" envDefault:"summary.txt"`
	RedisAddr        string `env:"REDIS_ADDR"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	ArtifactBucket   string `env:"ARTIFACT_BUCKET"`
	AWSRegion        string `env:"AWS_REGION"`

	// Reminder
	ReminderSchedule string `env:"REMINDER_SCHEDULE" envDefault:"@every 1h"`
	ReminderText     string `env:"REMINDER_TEXT" envDefault:"Stay hydrated! Time to drink some water"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
