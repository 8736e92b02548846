package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Enums

// TaskStatus tracks one generation task through its lifecycle.
// Image and text tasks skip "polling"; video tasks use all five states.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusGenerating TaskStatus = "generating"
	TaskStatusPolling    TaskStatus = "polling"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusError      TaskStatus = "error"
)

// Terminal reports whether a task in this status has finished, one way or the other.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusError
}

type BatchKind string

const (
	BatchKindScript    BatchKind = "script"
	BatchKindSEO       BatchKind = "seo"
	BatchKindImage     BatchKind = "image"
	BatchKindThumbnail BatchKind = "thumbnail"
	BatchKindVideo     BatchKind = "video"
	BatchKindAffiliate BatchKind = "affiliate"
	BatchKindStory     BatchKind = "story"
)

type ArtifactType string

const (
	ArtifactTypeImage ArtifactType = "image" // PNG bytes
	ArtifactTypeVideo ArtifactType = "video" // MP4 bytes
	ArtifactTypeAudio ArtifactType = "audio" // WAV bytes
	ArtifactTypeJSON  ArtifactType = "json"  // script/SEO bundles
)

// ContentType returns the MIME type served for downloads of this artifact.
func (t ArtifactType) ContentType() string {
	switch t {
	case ArtifactTypeImage:
		return "image/png"
	case ArtifactTypeVideo:
		return "video/mp4"
	case ArtifactTypeAudio:
		return "audio/wav"
	case ArtifactTypeJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension returns the file extension (without dot) used for download filenames.
func (t ArtifactType) Extension() string {
	switch t {
	case ArtifactTypeImage:
		return "png"
	case ArtifactTypeVideo:
		return "mp4"
	case ArtifactTypeAudio:
		return "wav"
	case ArtifactTypeJSON:
		return "json"
	default:
		return "txt"
	}
}

// Artifact is a generated asset held in memory for the lifetime of its batch.
type Artifact struct {
	Type ArtifactType `json:"type"`
	Data []byte       `json:"-"`
	// Structured is set instead of Data for JSON results (parsed scenes, SEO sets).
	Structured json.RawMessage `json:"structured,omitempty"`
}

// ScriptScene is one scene of a generated video script. The nested prompt
/// object is kept raw: it is an engineered prompt for a downstream video
// model, not data this service interprets.
type ScriptScene struct {
	SceneNumber int             `json:"scene_number"`
	Description string          `json:"description"`
	VideoPrompt json.RawMessage `json:"video_prompt"`
}

// SEOResult is the structured output of the SEO metadata tool.
type SEOResult struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Hashtags    []string `json:"hashtags"`
}

// Requests / responses

type ScriptRequest struct {
	Idea     string `json:"idea"`
	Duration string `json:"duration,omitempty"` // free text, e.g. "2 phút 30 giây" or "90"
	Provider string `json:"provider,omitempty"` // "google" (default) or "openai"
}

type ScriptResponse struct {
	// BatchID addresses the stored script bundle for JSON download.
	BatchID         uuid.UUID     `json:"batch_id"`
	Scenes          []ScriptScene `json:"scenes"`
	RequestedScenes int           `json:"requested_scenes,omitempty"`
}

type SEORequest struct {
	Idea     string `json:"idea"`
	Platform string `json:"platform,omitempty"` // "youtube" (default) or "tiktok"
}

type SEOResponse struct {
	BatchID uuid.UUID `json:"batch_id"`
	SEOResult
}

type TranslationRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"` // BCP 47 tag, e.g. "vi", "en-US"
}

type TranslationResponse struct {
	TranslatedText string `json:"translated_text"`
	TargetLanguage string `json:"target_language"`
}

type ImageBatchRequest struct {
	Prompts     []string `json:"prompts"`
	Copies      int      `json:"copies,omitempty"`       // per prompt, default 1
	AspectRatio string   `json:"aspect_ratio,omitempty"` // "9:16", "16:9", "1:1"
	Watermark   string   `json:"watermark,omitempty"`    // caption composited onto each result when set
}

type ThumbnailRequest struct {
	Idea        string `json:"idea"`
	OverlayText string `json:"overlay_text,omitempty"`
	Style       string `json:"style,omitempty"`
	Copies      int    `json:"copies,omitempty"`
}

// InlineImage is a user-supplied reference image for editing/compositing calls.
type InlineImage struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type AffiliateRequest struct {
	PersonImage  InlineImage `json:"person_image"`
	ProductImage InlineImage `json:"product_image"`
	ProductInfo  string      `json:"product_info,omitempty"`
	AspectRatio  string      `json:"aspect_ratio,omitempty"`
	Copies       int         `json:"copies,omitempty"`
	Watermark    string      `json:"watermark,omitempty"` // caption composited onto each result when set
}

type VideoBatchRequest struct {
	Prompts     []string     `json:"prompts"`
	Copies      int          `json:"copies,omitempty"`
	AspectRatio string       `json:"aspect_ratio,omitempty"`
	Image       *InlineImage `json:"image,omitempty"` // image-to-video when set
}

type StoryRequest struct {
	Title          string `json:"title,omitempty"`
	Topic          string `json:"topic"`
	Idea           string `json:"idea,omitempty"`
	CharacterCount int    `json:"character_count,omitempty"` // default 1500
	Voice          string `json:"voice,omitempty"`           // prebuilt voice name
	VoiceStyle     string `json:"voice_style,omitempty"`     // spoken delivery directive
}

type StoryResponse struct {
	BatchID uuid.UUID `json:"batch_id"`
	Script  string    `json:"script"`
}

// TaskView is the externally visible snapshot of one task.
type TaskView struct {
	ID            uuid.UUID  `json:"id"`
	Prompt        string     `json:"prompt"`
	Status        TaskStatus `json:"status"`
	StatusMessage string     `json:"status_message,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	HasArtifact   bool       `json:"has_artifact"`
	ArtifactType  string     `json:"artifact_type,omitempty"`
}

type BatchResponse struct {
	BatchID   uuid.UUID  `json:"batch_id"`
	Kind      BatchKind  `json:"kind"`
	Tasks     []TaskView `json:"tasks"`
	Done      bool       `json:"done"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreateBatchResponse struct {
	BatchID   uuid.UUID `json:"batch_id"`
	Kind      BatchKind `json:"kind"`
	TaskCount int       `json:"task_count"`
}
