package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ContentStudio-server/config"

	"github.com/charmbracelet/log"
	"github.com/hibiken/asynq"
)

const TypeNarrationGenerate = "narration:generate"

type NarrationPayload struct {
	NarracaoID uint `json:"narracao_id"`
}

func redisOpt(cfg config.Redis) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// Queue is the asynq-backed Dispatcher.
type Queue struct {
	client *asynq.Client
}

func NewQueue(cfg config.Redis) *Queue {
	return &Queue{client: asynq.NewClient(redisOpt(cfg))}
}

func NewNarrationTask(id uint) (*asynq.Task, error) {
	payload, err := json.Marshal(NarrationPayload{NarracaoID: id})
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}
	return asynq.NewTask(TypeNarrationGenerate, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

func (q *Queue) Dispatch(ctx context.Context, id uint) error {
	task, err := NewNarrationTask(id)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	log.Info("narration enqueued", "narracao", id, "task", info.ID, "queue", info.Queue)
	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
