package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"piktor/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Model:      "test-model",
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
}

func imageResponse(data []byte, mime string) generateContentResponse {
	return generateContentResponse{
		Candidates: []candidate{{
			Content: content{Parts: []part{{
				InlineData: &blob{
					Data:     base64.StdEncoding.EncodeToString(data),
					MimeType: mime,
				},
			}}},
		}},
	}
}

func TestGenerateImage(t *testing.T) {
	want := []byte{0xff, 0xd8, 0xff}
	var gotReq generateContentRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		if r.URL.Path != "/v1beta/models/test-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(imageResponse(want, "image/jpeg"))
	})

	img, err := client.GenerateImage(context.Background(), "an armchair in a loft", model.RatioSquare, []ImageInput{
		{Data: []byte{0x01}, MimeType: "image/png"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(img.Data) != string(want) || img.MimeType != "image/jpeg" {
		t.Fatalf("unexpected image %v %s", img.Data, img.MimeType)
	}

	if gotReq.GenerationConfig.ImageConfig == nil || gotReq.GenerationConfig.ImageConfig.AspectRatio != "1:1" {
		t.Fatal("expected aspect ratio forwarded in imageConfig")
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 2 {
		t.Fatalf("expected prompt plus one reference part, got %+v", gotReq.Contents)
	}
}

func TestGenerateImageRetriesWithoutImageConfig(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req generateContentRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.GenerationConfig.ImageConfig != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": {"message": "Unknown name \"imageConfig\""}}`))
			return
		}
		json.NewEncoder(w).Encode(imageResponse([]byte{0x01}, "image/png"))
	})

	if _, err := client.GenerateImage(context.Background(), "a sofa", model.RatioLandscape, nil); err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", calls)
	}
}

func TestGenerateImageNoImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateContentResponse{
			Candidates: []candidate{{Content: content{Parts: []part{{Text: "cannot comply"}}}}},
		})
	})

	_, err := client.GenerateImage(context.Background(), "a table", model.RatioSquare, nil)
	if err != ErrNoImage {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestGenerateImageEmptyPrompt(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty prompt")
	})
	if _, err := client.GenerateImage(context.Background(), "  ", model.RatioSquare, nil); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}
