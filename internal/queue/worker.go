package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/relayne/postdeck/internal/service"
)

type Worker struct {
	ps service.PublishService
}

func NewWorker(ps service.PublishService) *Worker {
	return &Worker{ps: ps}
}

// HandlePublishPostTask fires when a post's scheduled slot arrives and hands
// the post to the publishing pipeline.
func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	return w.ps.PublishPost(ctx, payload.PostID)
}
