package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, id uint) error

func (f runnerFunc) Process(ctx context.Context, id uint) error { return f(ctx, id) }

func TestNewNarrationTask(t *testing.T) {
	task, err := NewNarrationTask(42)
	require.NoError(t, err)
	assert.Equal(t, TypeNarrationGenerate, task.Type())
	assert.JSONEq(t, `{"narracao_id":42}`, string(task.Payload()))
}

func TestHandleNarrationTask(t *testing.T) {
	var got uint
	p := &Processor{runner: runnerFunc(func(_ context.Context, id uint) error {
		got = id
		switch id {
		case 2:
			return ErrNarrationFailed
		case 3:
			return errors.New("database is locked")
		}
		return nil
	})}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	task, _ := NewNarrationTask(1)
	require.NoError(t, p.HandleNarrationTask(ctx, task))
	assert.Equal(t, uint(1), got)

	task, _ = NewNarrationTask(2)
	err := p.HandleNarrationTask(ctx, task)
	assert.ErrorIs(t, err, asynq.SkipRetry, "recorded failures are not retried")

	task, _ = NewNarrationTask(3)
	err = p.HandleNarrationTask(ctx, task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	err = p.HandleNarrationTask(ctx, asynq.NewTask(TypeNarrationGenerate, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
