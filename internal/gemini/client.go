// Package gemini is a thin REST client for the Gemini image generation API.
// It speaks the generateContent endpoint directly so the module carries no
// vendor SDK for a single call shape.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"piktor/internal/model"
)

var ErrNoImage = errors.New("gemini: response contained no image")

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      opts.Model,
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("client", "gemini").Logger(),
	}
}

// GenerateImage sends one prompt plus any reference images and returns the
// first image the model produces. The reference images keep the rendered
// product faithful to the real photos.
func (c *Client) GenerateImage(ctx context.Context, prompt string, ratio model.AspectRatio, refs []ImageInput) (GeneratedImage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return GeneratedImage{}, errors.New("gemini: prompt is empty")
	}

	parts := []part{{Text: prompt}}
	for _, ref := range refs {
		if len(ref.Data) == 0 {
			continue
		}
		mime := ref.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, part{InlineData: &blob{
			Data:     base64.StdEncoding.EncodeToString(ref.Data),
			MimeType: mime,
		}})
	}

	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &imageConfig{AspectRatio: string(ratio)},
		},
	}

	resp, err := c.generateContent(ctx, req)
	if err != nil && req.GenerationConfig.ImageConfig != nil && isUnknownFieldError(err, "imageConfig") {
		// Older API versions reject imageConfig; retry without it and let
		// the prompt's own aspect directives carry the framing.
		c.logger.Warn().Msg("imageConfig not supported by API version, retrying without it")
		req.GenerationConfig.ImageConfig = nil
		resp, err = c.generateContent(ctx, req)
	}
	if err != nil {
		return GeneratedImage{}, err
	}

	img, ok := firstImage(resp)
	if !ok {
		return GeneratedImage{}, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return GeneratedImage{}, fmt.Errorf("decode image payload: %w", err)
	}

	return GeneratedImage{Data: data, MimeType: img.MimeType}, nil
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (generateContentResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return generateContentResponse{}, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}

	return decoded, nil
}

func firstImage(resp generateContentResponse) (blob, bool) {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				return *p.InlineData, true
			}
		}
	}
	return blob{}, false
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}
