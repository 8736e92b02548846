package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nvson/creatorstudio/internal/config"
	"github.com/nvson/creatorstudio/internal/media"
	"github.com/nvson/creatorstudio/internal/models"
	"github.com/nvson/creatorstudio/internal/prompt"
	"github.com/nvson/creatorstudio/internal/services"
	"github.com/nvson/creatorstudio/internal/task"
)

// Generator covers everything the content tools need from the Gemini
// backend. GeminiService implements all of it.
type Generator interface {
	services.TextProvider
	GenerateStructured(ctx context.Context, systemInstruction, prompt string, schema map[string]any) (json.RawMessage, error)
	GenerateImage(ctx context.Context, prompt string, refs []models.InlineImage, aspectRatio string) ([]byte, error)
	GenerateSpeech(ctx context.Context, text, voiceName string) ([]byte, error)
}

// VideoGenerator is the long-running video backend (VeoService).
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, prompt string, image *models.InlineImage, aspectRatio string, progress services.ProgressFunc) ([]byte, error)
}

type Handler struct {
	cfg    *config.Config
	store  *task.Store
	runner *task.Runner
	gemini Generator
	openai services.TextProvider // nil when no OpenAI key is configured
	veo    VideoGenerator
	creds  *services.CredentialState
}

func NewHandler(cfg *config.Config, gemini Generator, openai services.TextProvider, veo VideoGenerator, creds *services.CredentialState) *Handler {
	store := task.NewStore(cfg.BatchRetention)
	return &Handler{
		cfg:    cfg,
		store:  store,
		runner: &task.Runner{Store: store, MaxParallel: cfg.MaxParallelTasks},
		gemini: gemini,
		openai: openai,
		veo:    veo,
		creds:  creds,
	}
}

// CreateScript handles POST /v1/scripts
func (h *Handler) CreateScript(w http.ResponseWriter, r *http.Request) {
	var req models.ScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Idea == "" {
		respondError(w, http.StatusBadRequest, "Idea is required")
		return
	}

	userPrompt := prompt.BuildScriptUserPrompt(req.Idea, req.Duration)

	requested := 0
	if secs, ok := prompt.ParseDurationSeconds(req.Duration); ok {
		requested = prompt.SceneCount(secs)
	}

	var raw json.RawMessage
	switch req.Provider {
	case "", "google":
		structured, err := h.gemini.GenerateStructured(r.Context(), prompt.ScriptSystemInstruction, userPrompt, prompt.SceneSchema())
		if err != nil {
			respondProviderError(w, err)
			return
		}
		raw = structured
	case "openai":
		if h.openai == nil {
			respondError(w, http.StatusBadRequest, "OpenAI provider is not configured")
			return
		}
		text, err := h.openai.GenerateText(r.Context(), prompt.ScriptSystemInstruction, userPrompt)
		if err != nil {
			respondProviderError(w, err)
			return
		}
		raw = json.RawMessage(stripCodeFence(text))
	default:
		respondError(w, http.StatusBadRequest, "Unknown provider. Allowed: google, openai")
		return
	}

	var scenes []models.ScriptScene
	if err := json.Unmarshal(raw, &scenes); err != nil {
		log.Printf("[Scripts] Failed to parse scenes: %v", err)
		respondProviderError(w, services.Classify(fmt.Errorf("response is not valid json: %w", err), h.cfg.DefaultLocale))
		return
	}
	if len(scenes) == 0 {
		respondError(w, http.StatusBadGateway, "The model returned an empty script")
		return
	}
	if requested > 0 && len(scenes) != requested {
		log.Printf("[Scripts] Scene count mismatch: requested %d, got %d", requested, len(scenes))
	}

	b := h.storeStructured(models.BatchKindScript, req.Idea, raw)

	respondJSON(w, http.StatusOK, models.ScriptResponse{
		BatchID:         b.ID,
		Scenes:          scenes,
		RequestedScenes: requested,
	})
}

// CreateSEO handles POST /v1/seo
func (h *Handler) CreateSEO(w http.ResponseWriter, r *http.Request) {
	var req models.SEORequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Idea == "" {
		respondError(w, http.StatusBadRequest, "Idea is required")
		return
	}

	raw, err := h.gemini.GenerateStructured(r.Context(), "", prompt.BuildSEOPrompt(req.Idea, req.Platform), prompt.SEOSchema())
	if err != nil {
		respondProviderError(w, err)
		return
	}

	var result models.SEOResult
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Printf("[SEO] Failed to parse result: %v", err)
		respondError(w, http.StatusBadGateway, "The model returned malformed SEO data")
		return
	}

	b := h.storeStructured(models.BatchKindSEO, req.Idea, raw)

	respondJSON(w, http.StatusOK, models.SEOResponse{
		BatchID:   b.ID,
		SEOResult: result,
	})
}

// CreateTranslation handles POST /v1/translations
func (h *Handler) CreateTranslation(w http.ResponseWriter, r *http.Request) {
	var req models.TranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if req.TargetLanguage == "" {
		respondError(w, http.StatusBadRequest, "Target language is required")
		return
	}

	text, err := h.gemini.GenerateText(r.Context(), "", prompt.BuildTranslationPrompt(req.Text, req.TargetLanguage))
	if err != nil {
		respondProviderError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, models.TranslationResponse{
		TranslatedText: strings.TrimSpace(text),
		TargetLanguage: req.TargetLanguage,
	})
}

// CreateImages handles POST /v1/images
func (h *Handler) CreateImages(w http.ResponseWriter, r *http.Request) {
	var req models.ImageBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Prompts) == 0 {
		respondError(w, http.StatusBadRequest, "At least one prompt is required")
		return
	}

	aspect := h.aspectOrDefault(req.AspectRatio)
	b := task.NewBatch(models.BatchKindImage, req.Prompts, req.Copies)
	h.store.Add(b)

	go h.runner.RunParallel(context.Background(), b, h.imageExec(nil, aspect, req.Watermark))

	respondCreated(w, b)
}

// CreateThumbnails handles POST /v1/thumbnails
func (h *Handler) CreateThumbnails(w http.ResponseWriter, r *http.Request) {
	var req models.ThumbnailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Idea == "" {
		respondError(w, http.StatusBadRequest, "Idea is required")
		return
	}

	prompts := []string{prompt.BuildThumbnailPrompt(req.Idea, req.OverlayText, req.Style)}
	b := task.NewBatch(models.BatchKindThumbnail, prompts, req.Copies)
	h.store.Add(b)

	// Thumbnails are always landscape.
	go h.runner.RunParallel(context.Background(), b, h.imageExec(nil, "16:9", ""))

	respondCreated(w, b)
}

// CreateAffiliate handles POST /v1/affiliate
func (h *Handler) CreateAffiliate(w http.ResponseWriter, r *http.Request) {
	var req models.AffiliateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PersonImage.Data == "" || req.ProductImage.Data == "" {
		respondError(w, http.StatusBadRequest, "Both person_image and product_image are required")
		return
	}

	copies := req.Copies
	if copies < 1 {
		copies = 1
	}
	aspect := h.aspectOrDefault(req.AspectRatio)

	// Each copy gets its own seed so the composites differ.
	prompts := make([]string, copies)
	for i := range prompts {
		prompts[i] = prompt.BuildAffiliatePrompt(req.ProductInfo, aspect, i)
	}

	b := task.NewBatch(models.BatchKindAffiliate, prompts, 1)
	h.store.Add(b)

	refs := []models.InlineImage{req.PersonImage, req.ProductImage}
	go h.runner.RunParallel(context.Background(), b, h.imageExec(refs, aspect, req.Watermark))

	respondCreated(w, b)
}

// CreateVideos handles POST /v1/videos
func (h *Handler) CreateVideos(w http.ResponseWriter, r *http.Request) {
	var req models.VideoBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Prompts) == 0 {
		respondError(w, http.StatusBadRequest, "At least one prompt is required")
		return
	}
	if !h.creds.Selected() {
		respondError(w, http.StatusConflict, "Provider credential requires reselection")
		return
	}

	aspect := h.aspectOrDefault(req.AspectRatio)
	b := task.NewBatch(models.BatchKindVideo, req.Prompts, req.Copies)
	h.store.Add(b)

	// Video operations run one at a time so concurrent submissions don't
	// trip the provider's long-running operation limits.
	go h.runner.RunSequential(context.Background(), b, func(ctx context.Context, t task.Task, report task.Progress) (*models.Artifact, error) {
		progress := func(msg string) {
			report(models.TaskStatusPolling, msg)
		}
		data, err := h.veo.GenerateVideo(ctx, t.Prompt, req.Image, aspect, progress)
		if err != nil {
			return nil, err
		}
		return &models.Artifact{Type: models.ArtifactTypeVideo, Data: data}, nil
	})

	respondCreated(w, b)
}

// CreateStory handles POST /v1/stories
// The script is written synchronously; narration runs as a one-task batch.
func (h *Handler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req models.StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Topic == "" {
		respondError(w, http.StatusBadRequest, "Topic is required")
		return
	}

	script, err := h.gemini.GenerateText(r.Context(), "", prompt.BuildStoryPrompt(req.Topic, req.Idea, req.CharacterCount))
	if err != nil {
		respondProviderError(w, err)
		return
	}
	script = strings.TrimSpace(script)

	voice := req.Voice
	if voice == "" {
		voice = h.cfg.DefaultVoice
	}
	speechPrompt := prompt.BuildSpeechPrompt(req.VoiceStyle, script)

	b := task.NewBatch(models.BatchKindStory, []string{speechPrompt}, 1)
	h.store.Add(b)

	go h.runner.RunSequential(context.Background(), b, func(ctx context.Context, t task.Task, report task.Progress) (*models.Artifact, error) {
		pcm, err := h.gemini.GenerateSpeech(ctx, t.Prompt, voice)
		if err != nil {
			return nil, err
		}
		wav := media.WrapPCM(pcm, media.SpeechSampleRate, media.SpeechChannels, media.SpeechBitDepth)
		return &models.Artifact{Type: models.ArtifactTypeAudio, Data: wav}, nil
	})

	respondJSON(w, http.StatusAccepted, models.StoryResponse{
		BatchID: b.ID,
		Script:  script,
	})
}

// GetBatch handles GET /v1/batches/{id}
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}

	b, tasks, ok := h.store.Snapshot(batchID)
	if !ok {
		respondError(w, http.StatusNotFound, "Batch not found")
		return
	}

	views := make([]models.TaskView, 0, len(tasks))
	done := true
	for _, t := range tasks {
		if !t.Status.Terminal() {
			done = false
		}
		v := models.TaskView{
			ID:            t.ID,
			Prompt:        t.Prompt,
			Status:        t.Status,
			StatusMessage: t.StatusMessage,
			ErrorMessage:  t.ErrorMessage,
			HasArtifact:   t.Artifact != nil,
		}
		if t.Artifact != nil {
			v.ArtifactType = string(t.Artifact.Type)
		}
		views = append(views, v)
	}

	respondJSON(w, http.StatusOK, models.BatchResponse{
		BatchID:   b.ID,
		Kind:      b.Kind,
		Tasks:     views,
		Done:      done,
		CreatedAt: b.CreatedAt,
	})
}

// GetArtifact handles GET /v1/batches/{id}/tasks/{taskId}/artifact
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid batch ID")
		return
	}
	taskID, err := uuid.Parse(chi.URLParam(r, "taskId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	t, ok := h.store.Get(batchID, taskID)
	if !ok {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}
	if t.Artifact == nil {
		respondError(w, http.StatusNotFound, "Artifact not ready")
		return
	}

	data := t.Artifact.Data
	if t.Artifact.Structured != nil {
		data = t.Artifact.Structured
	}

	filename := fmt.Sprintf("%s.%s",
		media.SanitizeFilename(t.Prompt, t.ID.String()),
		t.Artifact.Type.Extension())

	w.Header().Set("Content-Type", t.Artifact.Type.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Health check. Also reports whether the provider credential is usable so
// the dashboard can prompt for reselection.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"credential_selected": h.creds.Selected(),
	})
}

// storeStructured records a synchronous JSON result as a completed one-task
// batch so it is downloadable like any other artifact.
func (h *Handler) storeStructured(kind models.BatchKind, name string, payload json.RawMessage) *task.Batch {
	b := task.NewBatch(kind, []string{name}, 1)
	h.store.Add(b)
	h.runner.RunSequential(context.Background(), b, func(ctx context.Context, t task.Task, report task.Progress) (*models.Artifact, error) {
		return &models.Artifact{Type: models.ArtifactTypeJSON, Structured: payload}, nil
	})
	return b
}

// imageExec builds the batch executor shared by the image tools.
// refs are optional reference images; watermark is composited when set.
func (h *Handler) imageExec(refs []models.InlineImage, aspectRatio, watermark string) task.Exec {
	return func(ctx context.Context, t task.Task, report task.Progress) (*models.Artifact, error) {
		data, err := h.gemini.GenerateImage(ctx, t.Prompt, refs, aspectRatio)
		if err != nil {
			return nil, err
		}
		if watermark != "" {
			marked, err := media.Watermark(data, watermark)
			if err != nil {
				log.Printf("[Images] Watermark failed, returning original: %v", err)
			} else {
				data = marked
			}
		}
		return &models.Artifact{Type: models.ArtifactTypeImage, Data: data}, nil
	}
}

func (h *Handler) aspectOrDefault(aspect string) string {
	if aspect == "" {
		return h.cfg.DefaultAspectRatio
	}
	return aspect
}

func respondCreated(w http.ResponseWriter, b *task.Batch) {
	respondJSON(w, http.StatusAccepted, models.CreateBatchResponse{
		BatchID:   b.ID,
		Kind:      b.Kind,
		TaskCount: len(b.TaskIDs()),
	})
}

// respondProviderError maps a classified provider failure onto an HTTP
// status and surfaces the user-facing message.
func respondProviderError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var ae *services.APIError
	if errors.As(err, &ae) {
		switch ae.Category {
		case services.ErrQuotaExceeded:
			status = http.StatusTooManyRequests
		case services.ErrServiceUnavailable:
			status = http.StatusServiceUnavailable
		case services.ErrInvalidCredential, services.ErrMalformedResponse, services.ErrNetworkFailure:
			status = http.StatusBadGateway
		}
	}
	respondError(w, status, task.UserMessage(err))
}

// stripCodeFence removes a markdown ```json fence if the model wrapped its
// output in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
