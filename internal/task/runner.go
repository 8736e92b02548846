package task

import (
	"context"
	"errors"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/nvson/creatorstudio/internal/models"
)

// Progress lets an Exec push intermediate lifecycle updates (e.g. moving to
// the polling state with a human-readable message) while it works.
type Progress func(status models.TaskStatus, message string)

// Exec performs the actual generation for one task and returns its artifact.
// A returned error fails only that task; siblings are unaffected.
type Exec func(ctx context.Context, t Task, report Progress) (*models.Artifact, error)

// UserMessage turns an execution error into the text stored on the task.
// Errors that carry a user-facing message (see services.APIError) surface
// it; anything else falls back to Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return err.Error()
}

// Runner drives batches to completion against a Store.
type Runner struct {
	Store       *Store
	MaxParallel int
}

// runOne takes a single task from pending to a terminal state. Every exit
// path lands on done or error; a task is never left mid-flight.
func (r *Runner) runOne(ctx context.Context, b *Batch, t Task, exec Exec) {
	report := func(status models.TaskStatus, message string) {
		r.Store.update(b.ID, t.ID, func(cur Task) Task {
			cur.Status = status
			cur.StatusMessage = message
			return cur
		})
	}

	report(models.TaskStatusGenerating, "")

	artifact, err := exec(ctx, t, report)
	if err != nil {
		log.Printf("[Runner] Task %s failed: %v", t.ID, err)
		msg := UserMessage(err)
		r.Store.update(b.ID, t.ID, func(cur Task) Task {
			cur.Status = models.TaskStatusError
			cur.StatusMessage = ""
			cur.ErrorMessage = msg
			return cur
		})
		return
	}

	r.Store.update(b.ID, t.ID, func(cur Task) Task {
		cur.Status = models.TaskStatusDone
		cur.StatusMessage = ""
		cur.Artifact = artifact
		return cur
	})
}

// RunSequential executes the batch's tasks one at a time in creation order.
// Video generation uses this to avoid hammering the long-running operation
// quota with concurrent submissions.
func (r *Runner) RunSequential(ctx context.Context, b *Batch, exec Exec) {
	_, tasks, ok := r.Store.Snapshot(b.ID)
	if !ok {
		return
	}
	for _, t := range tasks {
		if ctx.Err() != nil {
			r.failRemaining(b, ctx.Err())
			return
		}
		r.runOne(ctx, b, t, exec)
	}
}

// RunParallel executes all tasks concurrently, bounded by MaxParallel.
// Task goroutines never return an error to the group: a failed task records
// its error on its own record and the rest keep running.
func (r *Runner) RunParallel(ctx context.Context, b *Batch, exec Exec) {
	_, tasks, ok := r.Store.Snapshot(b.ID)
	if !ok {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	if r.MaxParallel > 0 {
		g.SetLimit(r.MaxParallel)
	}

	for _, t := range tasks {
		t := t
		g.Go(func() error {
			r.runOne(ctx, b, t, exec)
			return nil
		})
	}

	_ = g.Wait()
}

// failRemaining marks every still-pending task as errored so the batch
// always reaches a fully terminal state, even on cancellation.
func (r *Runner) failRemaining(b *Batch, cause error) {
	_, tasks, ok := r.Store.Snapshot(b.ID)
	if !ok {
		return
	}
	msg := UserMessage(cause)
	for _, t := range tasks {
		if t.Status.Terminal() {
			continue
		}
		r.Store.update(b.ID, t.ID, func(cur Task) Task {
			cur.Status = models.TaskStatusError
			cur.StatusMessage = ""
			cur.ErrorMessage = msg
			return cur
		})
	}
}
