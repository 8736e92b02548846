package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nvson/creatorstudio/internal/models"
)

const (
	geminiTextModel   = "gemini-2.5-flash"
	geminiImageModel  = "gemini-2.5-flash-image-preview"
	geminiSpeechModel = "gemini-2.5-flash-preview-tts"

	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// GeminiService talks to the Gemini REST API directly. One service instance
// covers text, schema-constrained JSON, image generation/compositing, and
// speech synthesis; each call is independent and safe for parallel use.
type GeminiService struct {
	apiKey      string
	baseURL     string
	locale      string
	credentials *CredentialState
	client      *http.Client
}

func NewGeminiService(apiKey, locale string, creds *CredentialState) *GeminiService {
	return &GeminiService{
		apiKey:      apiKey,
		baseURL:     defaultGeminiBaseURL,
		locale:      locale,
		credentials: creds,
		client:      &http.Client{Timeout: 300 * time.Second},
	}
}

// Gemini API request/response structures
type GeminiGenerateContentRequest struct {
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiGenerationConfig struct {
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	ResponseMimeType   string              `json:"responseMimeType,omitempty"`
	ResponseSchema     map[string]any      `json:"responseSchema,omitempty"`
	ImageConfig        *GeminiImageConfig  `json:"imageConfig,omitempty"`
	SpeechConfig       *GeminiSpeechConfig `json:"speechConfig,omitempty"`
}

type GeminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type GeminiSpeechConfig struct {
	VoiceConfig GeminiVoiceConfig `json:"voiceConfig"`
}

type GeminiVoiceConfig struct {
	PrebuiltVoiceConfig GeminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type GeminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inlineData,omitempty"`
}

type GeminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type GeminiGenerateContentResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

// GenerateText runs a plain text completion.
func (s *GeminiService) GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error) {
	reqBody := GeminiGenerateContentRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: prompt}}},
		},
	}
	if systemInstruction != "" {
		reqBody.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: systemInstruction}}}
	}

	resp, err := s.doGenerateContent(ctx, geminiTextModel, reqBody)
	if err != nil {
		return "", err
	}

	text := firstText(resp)
	if text == "" {
		return "", malformed(s.locale, fmt.Errorf("no text in response"))
	}
	return text, nil
}

// GenerateStructured runs a completion constrained to the given JSON schema
// and returns the raw JSON payload.
func (s *GeminiService) GenerateStructured(ctx context.Context, systemInstruction, prompt string, schema map[string]any) (json.RawMessage, error) {
	reqBody := GeminiGenerateContentRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: prompt}}},
		},
		GenerationConfig: &GeminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	}
	if systemInstruction != "" {
		reqBody.SystemInstruction = &GeminiContent{Parts: []GeminiPart{{Text: systemInstruction}}}
	}

	resp, err := s.doGenerateContent(ctx, geminiTextModel, reqBody)
	if err != nil {
		return nil, err
	}

	text := firstText(resp)
	if text == "" {
		return nil, malformed(s.locale, fmt.Errorf("no JSON payload in response"))
	}
	if !json.Valid([]byte(text)) {
		const maxLogLen = 500
		log.Printf("[Gemini] Structured response is not valid JSON: %s", truncate(text, maxLogLen))
		return nil, malformed(s.locale, fmt.Errorf("response is not valid JSON"))
	}
	return json.RawMessage(text), nil
}

// GenerateImage generates (or composites) a single image. refs carries
// optional reference images passed as inline data ahead of the prompt —
// the compositing tools send a person photo and a product photo this way.
func (s *GeminiService) GenerateImage(ctx context.Context, prompt string, refs []models.InlineImage, aspectRatio string) ([]byte, error) {
	parts := make([]GeminiPart, 0, len(refs)+1)
	for _, ref := range refs {
		parts = append(parts, GeminiPart{
			InlineData: &GeminiInlineData{
				MimeType: ref.MimeType,
				Data:     ref.Data,
			},
		})
	}
	parts = append(parts, GeminiPart{Text: prompt})

	reqBody := GeminiGenerateContentRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: parts},
		},
		GenerationConfig: &GeminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	if aspectRatio != "" {
		reqBody.GenerationConfig.ImageConfig = &GeminiImageConfig{AspectRatio: aspectRatio}
	}

	resp, err := s.doGenerateContent(ctx, geminiImageModel, reqBody)
	if err != nil {
		return nil, err
	}

	for _, part := range candidateParts(resp) {
		if part.InlineData != nil && part.InlineData.Data != "" {
			imageData, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, malformed(s.locale, fmt.Errorf("failed to decode base64 image: %w", err))
			}
			return imageData, nil
		}
	}

	if text := firstText(resp); text != "" {
		const maxLogLen = 200
		return nil, malformed(s.locale, fmt.Errorf("model returned text instead of image: %s", truncate(text, maxLogLen)))
	}
	return nil, malformed(s.locale, fmt.Errorf("no image data in response"))
}

// GenerateSpeech synthesizes narration and returns raw PCM samples
// (24 kHz, mono, 16-bit little-endian) ready for WAV framing.
func (s *GeminiService) GenerateSpeech(ctx context.Context, text, voiceName string) ([]byte, error) {
	reqBody := GeminiGenerateContentRequest{
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: text}}},
		},
		GenerationConfig: &GeminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &GeminiSpeechConfig{
				VoiceConfig: GeminiVoiceConfig{
					PrebuiltVoiceConfig: GeminiPrebuiltVoice{VoiceName: voiceName},
				},
			},
		},
	}

	resp, err := s.doGenerateContent(ctx, geminiSpeechModel, reqBody)
	if err != nil {
		return nil, err
	}

	for _, part := range candidateParts(resp) {
		if part.InlineData != nil && part.InlineData.Data != "" {
			pcm, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, malformed(s.locale, fmt.Errorf("failed to decode base64 audio: %w", err))
			}
			return pcm, nil
		}
	}
	return nil, malformed(s.locale, fmt.Errorf("no audio data in response"))
}

func (s *GeminiService) doGenerateContent(ctx context.Context, model string, reqBody GeminiGenerateContentRequest) (*GeminiGenerateContentResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Classify(fmt.Errorf("request failed: %w", err), s.locale)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Classify(fmt.Errorf("failed to read response: %w", err), s.locale)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := Classify(fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, string(bodyBytes)), s.locale)
		if apiErr.Category == ErrInvalidCredential && s.credentials != nil {
			s.credentials.Invalidate()
		}
		return nil, apiErr
	}

	var geminiResp GeminiGenerateContentResponse
	if err := json.Unmarshal(bodyBytes, &geminiResp); err != nil {
		return nil, malformed(s.locale, fmt.Errorf("failed to decode response: %w", err))
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, malformed(s.locale, fmt.Errorf("no candidates in response"))
	}
	return &geminiResp, nil
}

func candidateParts(resp *GeminiGenerateContentResponse) []GeminiPart {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func firstText(resp *GeminiGenerateContentResponse) string {
	var parts []string
	for _, part := range candidateParts(resp) {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
