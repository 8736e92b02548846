package models

import "testing"

func TestTaskStatusTerminal(t *testing.T) {
	terminal := []TaskStatus{TaskStatusDone, TaskStatusError}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	inFlight := []TaskStatus{TaskStatusPending, TaskStatusGenerating, TaskStatusPolling}
	for _, s := range inFlight {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestArtifactTypeContentType(t *testing.T) {
	tests := []struct {
		artifact ArtifactType
		mime     string
		ext      string
	}{
		{ArtifactTypeImage, "image/png", "png"},
		{ArtifactTypeVideo, "video/mp4", "mp4"},
		{ArtifactTypeAudio, "audio/wav", "wav"},
		{ArtifactTypeJSON, "application/json", "json"},
	}

	for _, tt := range tests {
		if got := tt.artifact.ContentType(); got != tt.mime {
			t.Errorf("%s: expected content type %s, got %s", tt.artifact, tt.mime, got)
		}
		if got := tt.artifact.Extension(); got != tt.ext {
			t.Errorf("%s: expected extension %s, got %s", tt.artifact, tt.ext, got)
		}
	}
}

func TestBatchKinds(t *testing.T) {
	kinds := []BatchKind{
		BatchKindScript,
		BatchKindSEO,
		BatchKindImage,
		BatchKindThumbnail,
		BatchKindVideo,
		BatchKindAffiliate,
		BatchKindStory,
	}

	for _, kind := range kinds {
		if kind == "" {
			t.Errorf("empty batch kind found")
		}
	}
}
