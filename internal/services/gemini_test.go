package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nvson/creatorstudio/internal/models"
)

// newTestGemini points a GeminiService at a local httptest server.
func newTestGemini(t *testing.T, handler http.HandlerFunc) (*GeminiService, *CredentialState) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	creds := NewCredentialState()
	s := NewGeminiService("test-key", "vi", creds)
	s.baseURL = srv.URL
	return s, creds
}

func textResponse(text string) GeminiGenerateContentResponse {
	return GeminiGenerateContentResponse{
		Candidates: []GeminiCandidate{
			{Content: GeminiContent{Parts: []GeminiPart{{Text: text}}}},
		},
	}
}

func TestGenerateText(t *testing.T) {
	var gotReq GeminiGenerateContentRequest
	s, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(textResponse("hello there"))
	})

	got, err := s.GenerateText(context.Background(), "be brief", "say hello")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "hello there" {
		t.Errorf("got %q", got)
	}
	if gotReq.SystemInstruction == nil || gotReq.SystemInstruction.Parts[0].Text != "be brief" {
		t.Error("system instruction not forwarded")
	}
	if gotReq.Contents[0].Parts[0].Text != "say hello" {
		t.Error("user prompt not forwarded")
	}
}

func TestGenerateStructured(t *testing.T) {
	payload := `[{"scene_number":1,"description":"mở đầu"}]`
	var gotReq GeminiGenerateContentRequest
	s, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(textResponse(payload))
	})

	schema := map[string]any{"type": "ARRAY"}
	got, err := s.GenerateStructured(context.Background(), "", "write scenes", schema)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if string(got) != payload {
		t.Errorf("got %s", got)
	}
	if gotReq.GenerationConfig == nil || gotReq.GenerationConfig.ResponseMimeType != "application/json" {
		t.Error("responseMimeType not set")
	}
	if gotReq.GenerationConfig.ResponseSchema == nil {
		t.Error("responseSchema not forwarded")
	}
}

func TestGenerateStructuredRejectsInvalidJSON(t *testing.T) {
	s, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse("Sure! Here is your JSON: {broken"))
	})

	_, err := s.GenerateStructured(context.Background(), "", "write scenes", nil)
	var ae *APIError
	if !errors.As(err, &ae) || ae.Category != ErrMalformedResponse {
		t.Fatalf("expected malformed_response, got %v", err)
	}
}

func TestGenerateImageDecodesInlineData(t *testing.T) {
	imgBytes := []byte{0x89, 'P', 'N', 'G'}
	var gotReq GeminiGenerateContentRequest
	s, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(GeminiGenerateContentResponse{
			Candidates: []GeminiCandidate{
				{Content: GeminiContent{Parts: []GeminiPart{
					{Text: "here is your image"},
					{InlineData: &GeminiInlineData{
						MimeType: "image/png",
						Data:     base64.StdEncoding.EncodeToString(imgBytes),
					}},
				}}},
			},
		})
	})

	refs := []models.InlineImage{{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString([]byte("ref"))}}
	got, err := s.GenerateImage(context.Background(), "composite these", refs, "1:1")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(got) != string(imgBytes) {
		t.Errorf("image bytes mismatch")
	}

	// Reference image must precede the text prompt.
	parts := gotReq.Contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil || parts[1].Text == "" {
		t.Errorf("expected [inlineData, text] parts, got %+v", parts)
	}
	if gotReq.GenerationConfig.ImageConfig == nil || gotReq.GenerationConfig.ImageConfig.AspectRatio != "1:1" {
		t.Error("aspect ratio not forwarded")
	}
}

func TestGenerateImageTextOnlyResponseFails(t *testing.T) {
	s, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse("I cannot generate that image."))
	})

	_, err := s.GenerateImage(context.Background(), "p", nil, "")
	var ae *APIError
	if !errors.As(err, &ae) || ae.Category != ErrMalformedResponse {
		t.Fatalf("expected malformed_response, got %v", err)
	}
}

func TestGenerateSpeechReturnsPCM(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	var gotReq GeminiGenerateContentRequest
	s, _ := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(GeminiGenerateContentResponse{
			Candidates: []GeminiCandidate{
				{Content: GeminiContent{Parts: []GeminiPart{
					{InlineData: &GeminiInlineData{
						MimeType: "audio/L16;codec=pcm;rate=24000",
						Data:     base64.StdEncoding.EncodeToString(pcm),
					}},
				}}},
			},
		})
	})

	got, err := s.GenerateSpeech(context.Background(), "xin chào", "Kore")
	if err != nil {
		t.Fatalf("GenerateSpeech: %v", err)
	}
	if string(got) != string(pcm) {
		t.Error("pcm bytes mismatch")
	}
	cfg := gotReq.GenerationConfig
	if cfg == nil || len(cfg.ResponseModalities) != 1 || cfg.ResponseModalities[0] != "AUDIO" {
		t.Error("AUDIO modality not requested")
	}
	if cfg.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
		t.Error("voice name not forwarded")
	}
}

func TestCredentialErrorInvalidatesState(t *testing.T) {
	s, creds := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"Requested entity was not found.","status":"NOT_FOUND"}}`))
	})

	_, err := s.GenerateText(context.Background(), "", "hi")
	var ae *APIError
	if !errors.As(err, &ae) || ae.Category != ErrInvalidCredential {
		t.Fatalf("expected invalid_credential, got %v", err)
	}
	if creds.Selected() {
		t.Fatal("credential state should be invalidated")
	}
}

func TestQuotaErrorClassified(t *testing.T) {
	s, creds := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := s.GenerateText(context.Background(), "", "hi")
	var ae *APIError
	if !errors.As(err, &ae) || ae.Category != ErrQuotaExceeded {
		t.Fatalf("expected quota_exceeded, got %v", err)
	}
	if !creds.Selected() {
		t.Fatal("quota errors must not invalidate the credential")
	}
}
