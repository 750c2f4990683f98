// Package gemini implements the generation provider against the Gemini
// API: a streamed text call for narration and generate/edit calls for
// image synthesis.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"google.golang.org/genai"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/config"
	"github.com/logoforge/logoforge/pkg/logger"
)

const (
	sourceImageCacheTTL = 30 * time.Minute
	maxSourceImageBytes = 8 << 20
)

// contentAPI is the slice of the genai Models surface the provider uses.
type contentAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client talks to the Gemini API. Source images referenced by URL are
// fetched once and cached for reuse across improvement rounds.
type Client struct {
	models         contentAPI
	httpClient     *http.Client
	sourceCache    *cache.Cache
	narrationModel string
	imageModel     string
	log            *logger.Logger
}

// New creates a Client from configuration.
func New(ctx context.Context, cfg config.GeminiConfig, log *logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if log == nil {
		log = logger.NewDefault("gemini")
	}
	return &Client{
		models:         genaiClient.Models,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		sourceCache:    cache.New(sourceImageCacheTTL, time.Hour),
		narrationModel: cfg.NarrationModel,
		imageModel:     cfg.ImageModel,
		log:            log,
	}, nil
}

// StreamNarration streams the narration completion, emitting each text
// chunk as it arrives.
func (c *Client) StreamNarration(ctx context.Context, prompt string, emit func(chunk string)) error {
	for resp, err := range c.models.GenerateContentStream(ctx, c.narrationModel, genai.Text(prompt), nil) {
		if err != nil {
			return fmt.Errorf("gemini: narration stream: %w", err)
		}
		if text := responseText(resp); text != "" {
			emit(text)
		}
	}
	return nil
}

// GenerateImage synthesizes one image from the prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (icon.ProviderImage, error) {
	return c.callImageModel(ctx, genai.Text(prompt))
}

// EditImage refines the image at sourceURL. The source is passed inline
// alongside the prompt so the model performs image-to-image editing.
func (c *Client) EditImage(ctx context.Context, prompt, sourceURL string) (icon.ProviderImage, error) {
	data, mimeType, err := c.fetchSourceImage(ctx, sourceURL)
	if err != nil {
		return icon.ProviderImage{}, fmt.Errorf("gemini: fetch source image: %w", err)
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(data, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return c.callImageModel(ctx, contents)
}

func (c *Client) callImageModel(ctx context.Context, contents []*genai.Content) (icon.ProviderImage, error) {
	resp, err := c.models.GenerateContent(ctx, c.imageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return icon.ProviderImage{}, err
	}
	return extractImage(resp)
}

// extractImage pulls the first usable image out of a model response.
// Unrecognized shapes are passed through raw so the orchestrator's
// normalization can probe them.
func extractImage(resp *genai.GenerateContentResponse) (icon.ProviderImage, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return icon.ProviderImage{}, fmt.Errorf("gemini: empty response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return icon.ProviderImage{}, fmt.Errorf("gemini: response blocked by safety settings")
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return icon.ProviderImage{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, nil
			}
			if part.FileData != nil && part.FileData.FileURI != "" {
				return icon.ProviderImage{URL: part.FileData.FileURI}, nil
			}
		}
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return icon.ProviderImage{}, fmt.Errorf("gemini: response carries no image")
	}
	return icon.ProviderImage{Raw: raw}, nil
}

// responseText concatenates the text parts of one stream chunk.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// fetchSourceImage resolves a source reference into raw bytes. Data URLs
// decode locally; remote URLs are fetched and cached.
func (c *Client) fetchSourceImage(ctx context.Context, sourceURL string) ([]byte, string, error) {
	if strings.HasPrefix(sourceURL, "data:") {
		return decodeDataURL(sourceURL)
	}

	if cached, ok := c.sourceCache.Get(sourceURL); ok {
		if img, ok := cached.(cachedImage); ok {
			return img.data, img.mimeType, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, sourceURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceImageBytes))
	if err != nil {
		return nil, "", err
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/png"
	}

	c.sourceCache.Set(sourceURL, cachedImage{data: data, mimeType: mimeType}, cache.DefaultExpiration)
	return data, mimeType, nil
}

type cachedImage struct {
	data     []byte
	mimeType string
}

func decodeDataURL(u string) ([]byte, string, error) {
	rest := strings.TrimPrefix(u, "data:")
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	mimeType, _, _ := strings.Cut(meta, ";")
	if mimeType == "" {
		mimeType = "image/png"
	}
	if !strings.Contains(meta, "base64") {
		return nil, "", fmt.Errorf("unsupported data URL encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL: %w", err)
	}
	return data, mimeType, nil
}
