package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nvson/creatorstudio/internal/models"
)

func TestNewBatchExpandsPromptsByCopies(t *testing.T) {
	prompts := []string{"a cat", "a dog", "a bird"}
	b := NewBatch(models.BatchKindImage, prompts, 4)

	_, _, ok := (&Store{}).Snapshot(b.ID)
	if ok {
		t.Fatal("batch should not be visible before Add")
	}

	s := NewStore(0)
	s.Add(b)

	_, tasks, ok := s.Snapshot(b.ID)
	if !ok {
		t.Fatal("batch not found after Add")
	}
	if len(tasks) != 12 {
		t.Fatalf("expected 3*4=12 tasks, got %d", len(tasks))
	}

	seen := make(map[uuid.UUID]bool)
	for i, task := range tasks {
		if seen[task.ID] {
			t.Errorf("duplicate task id %s", task.ID)
		}
		seen[task.ID] = true
		if task.Status != models.TaskStatusPending {
			t.Errorf("task %d: expected pending, got %s", i, task.Status)
		}
		want := prompts[i/4]
		if task.Prompt != want {
			t.Errorf("task %d: expected prompt %q, got %q", i, want, task.Prompt)
		}
	}
}

func TestNewBatchClampsCopies(t *testing.T) {
	b := NewBatch(models.BatchKindScript, []string{"idea"}, 0)
	if len(b.TaskIDs()) != 1 {
		t.Fatalf("expected copies=0 to behave as 1, got %d tasks", len(b.TaskIDs()))
	}
}

func TestRunParallelIsolatesFailures(t *testing.T) {
	s := NewStore(0)
	b := NewBatch(models.BatchKindImage, []string{"one", "two", "three", "four"}, 1)
	s.Add(b)

	r := &Runner{Store: s, MaxParallel: 2}
	r.RunParallel(context.Background(), b, func(ctx context.Context, task Task, report Progress) (*models.Artifact, error) {
		if task.Prompt == "two" {
			return nil, errors.New("provider rejected the request")
		}
		return &models.Artifact{Type: models.ArtifactTypeImage, Data: []byte(task.Prompt)}, nil
	})

	_, tasks, _ := s.Snapshot(b.ID)
	var done, failed int
	for _, task := range tasks {
		if !task.Status.Terminal() {
			t.Errorf("task %q left in non-terminal state %s", task.Prompt, task.Status)
		}
		switch task.Status {
		case models.TaskStatusDone:
			done++
			if task.Artifact == nil {
				t.Errorf("task %q done without artifact", task.Prompt)
			}
		case models.TaskStatusError:
			failed++
			if task.ErrorMessage == "" {
				t.Errorf("task %q errored without message", task.Prompt)
			}
		}
	}
	if done != 3 || failed != 1 {
		t.Fatalf("expected 3 done / 1 error, got %d done / %d error", done, failed)
	}
}

func TestRunSequentialPreservesOrder(t *testing.T) {
	s := NewStore(0)
	b := NewBatch(models.BatchKindVideo, []string{"first", "second"}, 2)
	s.Add(b)

	var mu sync.Mutex
	var order []string

	r := &Runner{Store: s}
	r.RunSequential(context.Background(), b, func(ctx context.Context, task Task, report Progress) (*models.Artifact, error) {
		mu.Lock()
		order = append(order, task.Prompt)
		mu.Unlock()
		return &models.Artifact{Type: models.ArtifactTypeVideo}, nil
	})

	want := []string{"first", "first", "second", "second"}
	if len(order) != len(want) {
		t.Fatalf("expected %d executions, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("execution order %v, want %v", order, want)
		}
	}
}

func TestRunSequentialCancellationTerminatesRemaining(t *testing.T) {
	s := NewStore(0)
	b := NewBatch(models.BatchKindVideo, []string{"a", "b", "c"}, 1)
	s.Add(b)

	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{Store: s}
	r.RunSequential(ctx, b, func(ctx context.Context, task Task, report Progress) (*models.Artifact, error) {
		cancel() // first task cancels the run
		return &models.Artifact{Type: models.ArtifactTypeVideo}, nil
	})

	_, tasks, _ := s.Snapshot(b.ID)
	for _, task := range tasks {
		if !task.Status.Terminal() {
			t.Errorf("task %q left in non-terminal state %s after cancellation", task.Prompt, task.Status)
		}
	}
	if tasks[0].Status != models.TaskStatusDone {
		t.Errorf("first task should have completed, got %s", tasks[0].Status)
	}
	for _, task := range tasks[1:] {
		if task.Status != models.TaskStatusError {
			t.Errorf("task %q should be errored after cancellation, got %s", task.Prompt, task.Status)
		}
	}
}

func TestStaleBatchUpdatesDropped(t *testing.T) {
	s := NewStore(0)

	old := NewBatch(models.BatchKindVideo, []string{"slow render"}, 1)
	s.Add(old)
	oldTask := old.TaskIDs()[0]

	// A resubmission of the same tool supersedes the first batch.
	fresh := NewBatch(models.BatchKindVideo, []string{"new render"}, 1)
	s.Add(fresh)

	ok := s.update(old.ID, oldTask, func(cur Task) Task {
		cur.Status = models.TaskStatusDone
		cur.Artifact = &models.Artifact{Type: models.ArtifactTypeVideo}
		return cur
	})
	if ok {
		t.Fatal("update on superseded batch should be dropped")
	}

	got, _ := s.Get(old.ID, oldTask)
	if got.Status != models.TaskStatusPending {
		t.Fatalf("superseded task mutated to %s", got.Status)
	}

	// The fresh batch still accepts updates.
	if ok := s.update(fresh.ID, fresh.TaskIDs()[0], func(cur Task) Task {
		cur.Status = models.TaskStatusGenerating
		return cur
	}); !ok {
		t.Fatal("active batch update should succeed")
	}
}

func TestBatchesOfDifferentKindsDoNotSupersede(t *testing.T) {
	s := NewStore(0)

	images := NewBatch(models.BatchKindImage, []string{"poster"}, 1)
	s.Add(images)
	videos := NewBatch(models.BatchKindVideo, []string{"clip"}, 1)
	s.Add(videos)

	if ok := s.update(images.ID, images.TaskIDs()[0], func(cur Task) Task {
		cur.Status = models.TaskStatusGenerating
		return cur
	}); !ok {
		t.Fatal("image batch should stay active when a video batch is added")
	}
}

func TestUpdateNeverRegressesStatus(t *testing.T) {
	s := NewStore(0)
	b := NewBatch(models.BatchKindImage, []string{"p"}, 1)
	s.Add(b)
	id := b.TaskIDs()[0]

	s.update(b.ID, id, func(cur Task) Task {
		cur.Status = models.TaskStatusDone
		return cur
	})

	if ok := s.update(b.ID, id, func(cur Task) Task {
		cur.Status = models.TaskStatusGenerating
		return cur
	}); ok {
		t.Fatal("terminal task accepted a lifecycle regression")
	}

	got, _ := s.Get(b.ID, id)
	if got.Status != models.TaskStatusDone {
		t.Fatalf("expected done, got %s", got.Status)
	}
}

func TestProgressReportVisibleInSnapshot(t *testing.T) {
	s := NewStore(0)
	b := NewBatch(models.BatchKindVideo, []string{"p"}, 1)
	s.Add(b)

	started := make(chan struct{})
	release := make(chan struct{})

	r := &Runner{Store: s}
	go func() {
		r.RunSequential(context.Background(), b, func(ctx context.Context, task Task, report Progress) (*models.Artifact, error) {
			report(models.TaskStatusPolling, "Đang xử lý video... (1)")
			close(started)
			<-release
			return &models.Artifact{Type: models.ArtifactTypeVideo}, nil
		})
	}()

	<-started
	got, _ := s.Get(b.ID, b.TaskIDs()[0])
	if got.Status != models.TaskStatusPolling {
		t.Errorf("expected polling mid-flight, got %s", got.Status)
	}
	if got.StatusMessage == "" {
		t.Error("expected a status message while polling")
	}
	close(release)

	deadline := time.After(2 * time.Second)
	for {
		got, _ = s.Get(b.ID, b.TaskIDs()[0])
		if got.Status.Terminal() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("task never reached a terminal state")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestUserMessagePrefersUserFacingText(t *testing.T) {
	plain := errors.New("connection reset")
	if got := UserMessage(plain); got != "connection reset" {
		t.Errorf("expected raw error text, got %q", got)
	}

	wrapped := fmt.Errorf("generate image: %w", userErr{msg: "Hạn mức đã hết."})
	if got := UserMessage(wrapped); got != "Hạn mức đã hết." {
		t.Errorf("expected user-facing text through wrapping, got %q", got)
	}

	if got := UserMessage(nil); got != "" {
		t.Errorf("expected empty for nil, got %q", got)
	}
}

type userErr struct{ msg string }

func (e userErr) Error() string       { return "quota exhausted" }
func (e userErr) UserMessage() string { return e.msg }
