package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/genai"

	config "github.com/Kjdragan/codescribe/configs"
	"github.com/Kjdragan/codescribe/internal/logger"
)

const (
	vertexScope    = "https://www.googleapis.com/auth/cloud-platform"
	requestTimeout = 2 * time.Minute
)

var errEmptyResponse = errors.New("extract: model returned no content")

// GeminiClient runs extractions through the GenAI SDK against either AI
// Studio (API key) or Vertex AI (OAuth).
type GeminiClient struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

// NewAPIKeyClient targets AI Studio. baseURL may be empty.
func NewAPIKeyClient(ctx context.Context, apiKey, model, baseURL string) (*GeminiClient, error) {
	return newClient(ctx, model, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOptions(baseURL),
	})
}

// NewVertexClient targets Vertex AI with requests authorised by ts.
// baseURL may be empty.
func NewVertexClient(ctx context.Context, ts oauth2.TokenSource, project, location, model, baseURL string) (*GeminiClient, error) {
	return newClient(ctx, model, &genai.ClientConfig{
		Backend:     genai.BackendVertexAI,
		Project:     project,
		Location:    location,
		HTTPClient:  oauth2.NewClient(ctx, ts),
		HTTPOptions: httpOptions(baseURL),
	})
}

func httpOptions(baseURL string) genai.HTTPOptions {
	timeout := requestTimeout
	opts := genai.HTTPOptions{Timeout: &timeout}
	if baseURL != "" {
		opts.BaseURL = strings.TrimRight(baseURL, "/") + "/"
	}
	return opts
}

func newClient(ctx context.Context, model string, cc *genai.ClientConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("extract: create client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  model,
		log:    logger.Component("extract"),
	}, nil
}

// New picks the backend from cfg. In Vertex mode the credentials file may
// be a service account key or an authorized_user token such as the one
// written by the oauth helper.
func New(ctx context.Context, cfg config.ExtractionConfig) (*GeminiClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.UseVertexAI {
		return NewAPIKeyClient(ctx, cfg.APIKey(), cfg.ModelID, "")
	}

	data, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("extract: read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, vertexScope)
	if err != nil {
		return nil, fmt.Errorf("extract: parse credentials: %w", err)
	}
	return NewVertexClient(ctx, creds.TokenSource, cfg.VertexProject(), cfg.Location, cfg.ModelID, "")
}

type extractionPayload struct {
	Extractions []Extraction `json:"extractions"`
}

func (c *GeminiClient) Extract(ctx context.Context, text, prompt string, examples []Example) (*Result, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(systemInstruction)}},
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr[float32](0),
	}

	c.log.Debug().Str("model", c.model).Int("text_len", len(text)).Msg("sending extraction request")
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(BuildPrompt(prompt, examples, text)), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("extract: %s (%d): %s", apiErr.Status, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("extract: request failed: %w", err)
	}

	out := resp.Text()
	if out == "" {
		return nil, errEmptyResponse
	}

	var payload extractionPayload
	if err := json.Unmarshal([]byte(stripFences(out)), &payload); err != nil {
		return nil, fmt.Errorf("extract: decode extractions: %w", err)
	}

	Align(text, payload.Extractions)
	return &Result{Text: text, Extractions: payload.Extractions}, nil
}

// stripFences removes a ```json ... ``` wrapper if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
