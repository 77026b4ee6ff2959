package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"slack-summarizer/internal/artifact"
	"slack-summarizer/internal/config"
	"slack-summarizer/internal/deliver"
	"slack-summarizer/internal/dispatch"
	"slack-summarizer/internal/extract"
	"slack-summarizer/internal/llm"
	"slack-summarizer/internal/logger"
	"slack-summarizer/internal/pipeline"
	"slack-summarizer/internal/queue"
)

// maxContentChars is the largest prompt body a deployment may configure.
const maxContentChars = 5000

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config     config.Config
	Log        *slog.Logger
	Queue      queue.Queue
	Runner     pipeline.Runner
	Sink       artifact.Sink
	Dispatcher *dispatch.Dispatcher

	closers []func() error
}

// Close releases connections opened by Build.
func (d Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ReminderDeps bundles what the reminder bot needs.
type ReminderDeps struct {
	Config config.Config
	Log    *slog.Logger
	Poster *deliver.SlackPoster
}

// Build loads env, config, and shared components for the HTTP server.
func Build() (Deps, error) {
	cfg, log, err := load()
	if err != nil {
		return Deps{}, err
	}
	return New(cfg, log)
}

// BuildWorker is Build for the standalone worker, which only makes sense on a shared queue.
func BuildWorker() (Deps, error) {
	cfg, log, err := load()
	if err != nil {
		return Deps{}, err
	}
	if cfg.QueueProvider != "nats" {
		return Deps{}, fmt.Errorf("the worker requires QUEUE_PROVIDER=nats, got %q", cfg.QueueProvider)
	}
	return New(cfg, log)
}

// BuildSocket is Build for the Socket Mode listener. Both Slack tokens are required.
func BuildSocket() (Deps, error) {
	cfg, log, err := load()
	if err != nil {
		return Deps{}, err
	}
	if err := validateSocket(cfg); err != nil {
		return Deps{}, err
	}
	return New(cfg, log)
}

func validateSocket(cfg config.Config) error {
	if !strings.HasPrefix(cfg.SlackAppToken, "xapp-") {
		return fmt.Errorf("SLACK_APP_TOKEN must be an app-level token (xapp-...)")
	}
	if cfg.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required for Socket Mode")
	}
	return nil
}

// BuildCLI wires the pipeline without a queue or chat delivery.
func BuildCLI() (Deps, error) {
	cfg, log, err := load()
	if err != nil {
		return Deps{}, err
	}
	return newPipelineDeps(cfg, log)
}

// BuildReminder wires the reminder bot.
func BuildReminder() (ReminderDeps, error) {
	cfg, log, err := load()
	if err != nil {
		return ReminderDeps{}, err
	}
	if cfg.SlackBotToken == "" {
		return ReminderDeps{}, fmt.Errorf("SLACK_BOT_TOKEN is required for the reminder")
	}
	if cfg.SlackChannel == "" {
		return ReminderDeps{}, fmt.Errorf("SLACK_CHANNEL_ID is required for the reminder")
	}
	return ReminderDeps{
		Config: cfg,
		Log:    log,
		Poster: deliver.NewSlackPoster(cfg.SlackBotToken, ""),
	}, nil
}

func load() (config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	return cfg, logger.New(cfg.LogLevel), nil
}

// New wires every component from cfg. Provider-specific settings are validated first.
func New(cfg config.Config, log *slog.Logger) (Deps, error) {
	deps, err := newPipelineDeps(cfg, log)
	if err != nil {
		return Deps{}, err
	}
	q, closeQueue, err := buildQueue(cfg, log)
	if err != nil {
		_ = deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	deps.closers = append(deps.closers, closeQueue)

	var poster deliver.Poster
	if cfg.SlackBotToken != "" {
		poster = deliver.NewSlackPoster(cfg.SlackBotToken, "")
	}
	d := dispatch.New(dispatch.Deps{
		Log:       log,
		Queue:     q,
		Runner:    deps.Runner,
		Deliverer: deliver.NewWebhook(cfg.DeliveryTimeout),
		Sink:      deps.Sink,
		Poster:    poster,
	})
	if err := d.RegisterSummarize(cfg.SlashCommands...); err != nil {
		_ = deps.Close()
		return Deps{}, fmt.Errorf("failed to register slash commands: %w", err)
	}
	deps.Dispatcher = d
	return deps, nil
}

func newPipelineDeps(cfg config.Config, log *slog.Logger) (Deps, error) {
	if err := validate(cfg); err != nil {
		return Deps{}, err
	}
	model, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	sink, err := buildSink(context.Background(), cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize artifact sink: %w", err)
	}
	extractor := extract.NewHTTPExtractor(extract.Options{
		Timeout:  cfg.ExtractTimeout,
		MaxBytes: cfg.ExtractMaxBytes,
		MaxChars: cfg.MaxContentChars,
	})
	runner := pipeline.New(extractor, model, log, cfg.MinContentChars)
	deps := Deps{
		Config:  cfg,
		Log:     log,
		Runner:  runner,
		Sink:    sink,
		closers: []func() error{sink.Close},
	}
	// Without a queue the dispatcher only serves Summarize.
	deps.Dispatcher = dispatch.New(dispatch.Deps{Log: log, Runner: runner, Sink: sink})
	return deps, nil
}

func validate(cfg config.Config) error {
	if cfg.MinContentChars <= 0 {
		return fmt.Errorf("MIN_CONTENT_CHARS must be positive, got %d", cfg.MinContentChars)
	}
	if cfg.MaxContentChars < cfg.MinContentChars || cfg.MaxContentChars > maxContentChars {
		return fmt.Errorf("MAX_CONTENT_CHARS must be between MIN_CONTENT_CHARS (%d) and %d, got %d",
			cfg.MinContentChars, maxContentChars, cfg.MaxContentChars)
	}
	if len(cfg.SlashCommands) == 0 {
		return fmt.Errorf("SLASH_COMMANDS must name at least one command")
	}
	return nil
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, func() error, error) {
	switch cfg.QueueProvider {
	case "memory":
		log.Info("using in-process queue", "buffer", cfg.QueueBuffer, "concurrency", cfg.WorkerConcurrency)
		return queue.NewMemory(log, cfg.QueueBuffer, cfg.WorkerConcurrency), func() error { return nil }, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL, nats.Name("slack-summarizer"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc, cfg.WorkerConcurrency), func() error { return nc.Drain() }, nil
	default:
		return nil, nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: memory, nats)", cfg.QueueProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel)
		return client, nil
	case "cohere":
		if cfg.CohereKey == "" {
			return nil, fmt.Errorf("COHERE_API_KEY is required when LLM_PROVIDER=cohere")
		}
		client, err := llm.NewCohereClient(cfg.CohereKey, cfg.LLMModel, "")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Cohere client: %w", err)
		}
		log.Info("using Cohere LLM client", "model", cfg.LLMModel)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, cohere)", cfg.LLMProvider)
	}
}

func buildSink(ctx context.Context, cfg config.Config, log *slog.Logger) (artifact.Sink, error) {
	switch cfg.ArtifactProvider {
	case "", "none":
		return artifact.NewNoOpSink(), nil
	case "file":
		if cfg.ArtifactPath == "" {
			return nil, fmt.Errorf("ARTIFACT_PATH is required when ARTIFACT_PROVIDER=file")
		}
		log.Info("writing last summary to file", "path", cfg.ArtifactPath)
		return artifact.NewFileSink(cfg.ArtifactPath), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when ARTIFACT_PROVIDER=redis")
		}
		sink, err := artifact.NewRedisSink(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		log.Info("writing last summary to Redis", "addr", cfg.RedisAddr)
		return sink, nil
	case "s3":
		if cfg.ArtifactBucket == "" {
			return nil, fmt.Errorf("ARTIFACT_BUCKET is required when ARTIFACT_PROVIDER=s3")
		}
		sink, err := artifact.NewS3Sink(ctx, cfg.ArtifactBucket, cfg.ArtifactPath, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		log.Info("writing last summary to S3", "bucket", cfg.ArtifactBucket, "key", cfg.ArtifactPath)
		return sink, nil
	default:
		return nil, fmt.Errorf("invalid ARTIFACT_PROVIDER: %s (valid options: none, file, redis, s3)", cfg.ArtifactProvider)
	}
}
