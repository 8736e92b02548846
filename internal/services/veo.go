package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nvson/creatorstudio/internal/media"
	"github.com/nvson/creatorstudio/internal/models"
	"github.com/nvson/creatorstudio/internal/poller"
)

// ---------------------------------------------------------------------------
// Veo Video Generation Service
// Submits a long-running video operation through the Google Gen AI SDK and
// polls it to completion. Text-to-video by default; when a reference image
// is supplied it becomes the first frame (image-to-video).
// ---------------------------------------------------------------------------

const defaultVeoModel = "veo-3.1-fast-generate-preview"

// VeoService handles video generation via Google's Veo models.
type VeoService struct {
	apiKey      string
	model       string
	locale      string
	credentials *CredentialState
	poll        *poller.Poller
}

// NewVeoService creates a new Veo video generation service.
// apiKey is the Gemini API key (the same key covers Gemini and Veo).
// An empty model or zero pollInterval falls back to the defaults.
func NewVeoService(apiKey, model, locale string, pollInterval time.Duration, creds *CredentialState) *VeoService {
	if model == "" {
		model = defaultVeoModel
	}
	return &VeoService{
		apiKey:      apiKey,
		model:       model,
		locale:      locale,
		credentials: creds,
		poll:        poller.New(pollInterval),
	}
}

// ProgressFunc receives a human-readable status line per poll iteration.
type ProgressFunc func(statusMessage string)

// GenerateVideo submits a video generation operation, polls it until done,
// then downloads the result. Blocks the calling goroutine; batch execution
// runs each task in its own goroutine.
//
// image is optional; when set its bytes seed the first frame.
// progress may be nil.
func (s *VeoService) GenerateVideo(ctx context.Context, prompt string, image *models.InlineImage, aspectRatio string, progress ProgressFunc) ([]byte, error) {
	if progress == nil {
		progress = func(string) {}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	var firstFrame *genai.Image
	if image != nil && image.Data != "" {
		imageBytes, err := media.DecodeBase64(image.Data)
		if err != nil {
			return nil, malformed(s.locale, fmt.Errorf("invalid reference image: %w", err))
		}
		firstFrame = &genai.Image{
			ImageBytes: imageBytes,
			MIMEType:   image.MimeType,
		}
	}

	config := &genai.GenerateVideosConfig{
		AspectRatio:    aspectRatio,
		NumberOfVideos: 1,
	}

	log.Printf("[Veo] Starting video generation (model=%s, promptLen=%d, hasImage=%v)", s.model, len(prompt), firstFrame != nil)

	operation, err := client.Models.GenerateVideos(ctx, s.model, prompt, firstFrame, config)
	if err != nil {
		return nil, s.classifySubmit(err)
	}

	log.Printf("[Veo] Operation started: %s", operation.Name)
	progress("Đang khởi tạo video...")

	err = s.poll.Run(ctx, func(ctx context.Context, attempt int) (bool, error) {
		if operation.Done {
			return true, nil
		}
		if attempt == 1 {
			// Just submitted; wait one interval before the first poll.
			return false, nil
		}
		poll := attempt - 1
		operation, err = client.Operations.GetVideosOperation(ctx, operation, nil)
		if err != nil {
			return false, s.classifySubmit(fmt.Errorf("failed to poll operation (attempt %d): %w", poll, err))
		}
		log.Printf("[Veo] Poll %d: done=%v", poll, operation.Done)
		progress(fmt.Sprintf("Đang xử lý video... (lần kiểm tra %d)", poll))
		return operation.Done, nil
	})
	if err != nil {
		return nil, err
	}

	if len(operation.Error) > 0 {
		errJSON, _ := json.Marshal(operation.Error)
		return nil, s.classifySubmit(fmt.Errorf("video generation operation failed: %s", string(errJSON)))
	}

	if operation.Response == nil {
		return nil, malformed(s.locale, fmt.Errorf("no response in completed operation %s", operation.Name))
	}

	if operation.Response.RAIMediaFilteredCount > 0 {
		reasons := "unknown"
		if len(operation.Response.RAIMediaFilteredReasons) > 0 {
			reasons = strings.Join(operation.Response.RAIMediaFilteredReasons, ", ")
		}
		return nil, fmt.Errorf("video blocked by safety filters: %d video(s) filtered, reasons: %s", operation.Response.RAIMediaFilteredCount, reasons)
	}

	if len(operation.Response.GeneratedVideos) == 0 {
		return nil, malformed(s.locale, fmt.Errorf("no videos in response"))
	}

	video := operation.Response.GeneratedVideos[0]
	if video.Video == nil {
		return nil, malformed(s.locale, fmt.Errorf("generated video object is nil"))
	}

	log.Printf("[Veo] Video ready, downloading...")
	progress("Đang tải video về...")

	downloadURI := genai.NewDownloadURIFromVideo(video.Video)
	videoBytes, err := client.Files.Download(ctx, downloadURI, nil)
	if err != nil {
		return nil, newAPIError(ErrNetworkFailure, s.locale, fmt.Errorf("failed to download generated video: %w", err))
	}
	if len(videoBytes) == 0 {
		return nil, newAPIError(ErrNetworkFailure, s.locale, fmt.Errorf("downloaded video is empty"))
	}

	log.Printf("[Veo] Video generated successfully (%d bytes)", len(videoBytes))
	return videoBytes, nil
}

// classifySubmit classifies submit/poll failures and resets the credential
// flag when the provider reports the key gone mid-flight.
func (s *VeoService) classifySubmit(err error) error {
	apiErr := Classify(err, s.locale)
	if apiErr.Category == ErrInvalidCredential && s.credentials != nil {
		s.credentials.Invalidate()
	}
	return apiErr
}
