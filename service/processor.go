package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ContentStudio-server/config"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"
)

// NarrationRunner is what the processor calls for each task.
type NarrationRunner interface {
	Process(ctx context.Context, id uint) error
}

// Processor consumes narration tasks from Redis.
type Processor struct {
	srv    *asynq.Server
	runner NarrationRunner
}

func NewProcessor(redis config.Redis, worker config.Worker, runner NarrationRunner) *Processor {
	concurrency := worker.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	srv := asynq.NewServer(redisOpt(redis), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{"default": 1},
		Logger:      asynqLogger{},
	})
	return &Processor{srv: srv, runner: runner}
}

// Start runs the consumer in the background.
func (p *Processor) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeNarrationGenerate, p.HandleNarrationTask)
	log.Info("starting narration processor")
	return p.srv.Start(mux)
}

func (p *Processor) Shutdown() {
	p.srv.Shutdown()
}

// HandleNarrationTask runs one job. Failures already recorded on the row skip
// the retry; anything else (database trouble) is retried by asynq.
func (p *Processor) HandleNarrationTask(ctx context.Context, t *asynq.Task) error {
	var payload NarrationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	err := p.runner.Process(ctx, payload.NarracaoID)
	if errors.Is(err, ErrNarrationFailed) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

// asynqLogger routes asynq's own logging through charmbracelet/log.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { log.Debug(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Info(args ...any)  { log.Info(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Warn(args ...any)  { log.Warn(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Error(args ...any) { log.Error(fmt.Sprint(args...), "component", "asynq") }
func (asynqLogger) Fatal(args ...any) { log.Fatal(fmt.Sprint(args...), "component", "asynq") }
