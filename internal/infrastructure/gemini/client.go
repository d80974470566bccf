// Package gemini wraps the Gen AI SDK for one image-plus-prompt turn that must
// answer with a JSON object, and maps SDK failures onto a small Kind taxonomy.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/egovauthenticator/api/internal/pkg/jsonx"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const apiVersion = "v1beta"

// KeySource looks up the API key for a provider name.
type KeySource interface {
	GetAPIKey(ctx context.Context, provider string) (string, error)
}

// Config configures the client. Keys is consulted on every call so rotated keys
// take effect without a restart; FallbackKey is used when Keys has nothing.
// An empty BaseURL keeps the SDK's endpoint.
type Config struct {
	BaseURL     string
	Provider    string
	Keys        KeySource
	FallbackKey string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

type Client struct {
	cfg Config

	mu     sync.Mutex
	key    string
	client *genai.Client
}

func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.Provider == "" {
		cfg.Provider = "gemini"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{cfg: cfg}
}

// Image is one inline image part.
type Image struct {
	MimeType string
	Data     []byte
}

// Request is a single-turn generation request.
type Request struct {
	Model           string
	Prompt          string
	Images          []Image
	Schema          map[string]any
	Temperature     *float64
	MaxOutputTokens int
}

// Response carries the JSON object recovered from the model's text.
type Response struct {
	JSON         json.RawMessage
	Text         string
	FinishReason string
}

// Temperature is a convenience for Request.Temperature.
func Temperature(t float64) *float64 { return &t }

// Generate runs one generateContent call and returns the JSON object in the answer.
// Every failure is an *Error.
func (c *Client) Generate(ctx context.Context, in Request) (Response, error) {
	model := strings.TrimSpace(in.Model)
	if model == "" {
		return Response{}, &Error{Kind: KindRequest, Msg: "model is required"}
	}
	key, err := c.apiKey(ctx)
	if err != nil {
		return Response{}, &Error{Kind: KindRequest, Model: model, Err: err}
	}
	sdk, err := c.sdkClient(ctx, key)
	if err != nil {
		return Response{}, &Error{Kind: KindRequest, Model: model, Err: err}
	}
	gc, err := generationConfig(in)
	if err != nil {
		return Response{}, &Error{Kind: KindRequest, Model: model, Err: err}
	}

	parts := []*genai.Part{genai.NewPartFromText(in.Prompt)}
	for _, img := range in.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	out, err := sdk.Models.GenerateContent(ctx, model, contents, gc)
	if err != nil {
		return Response{}, classifyErr(model, err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return Response{}, &Error{Kind: KindBlocked, Model: model, Msg: string(out.PromptFeedback.BlockReason)}
	}
	if len(out.Candidates) == 0 || out.Candidates[0] == nil {
		return Response{}, &Error{Kind: KindMalformed, Model: model, Msg: "no candidates"}
	}
	cand := out.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent,
		genai.FinishReasonBlocklist, genai.FinishReasonSPII:
		return Response{}, &Error{Kind: KindBlocked, Model: model, Msg: string(cand.FinishReason)}
	}

	var text strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p != nil {
				text.WriteString(p.Text)
			}
		}
	}
	resp := Response{Text: text.String(), FinishReason: string(cand.FinishReason)}

	switch parsed := jsonx.Parse(resp.Text).(type) {
	case jsonx.Parsed:
		resp.JSON = parsed.Raw
		if parsed.Recovered {
			c.cfg.Logger.Debug("recovered json from model prose", zap.String("model", model))
		}
		return resp, nil
	case jsonx.Unparseable:
		kind := KindMalformed
		if cand.FinishReason == genai.FinishReasonMaxTokens {
			kind = KindTruncated
		}
		return resp, &Error{Kind: kind, Model: model, Msg: parsed.Reason}
	}
	return resp, &Error{Kind: KindMalformed, Model: model}
}

// sdkClient returns the SDK client bound to key, replacing the cached one when
// the key has rotated.
func (c *Client) sdkClient(ctx context.Context, key string) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.key == key {
		return c.client, nil
	}
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.cfg.BaseURL,
			APIVersion: apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if c.client != nil {
		c.cfg.Logger.Info("api key rotated, rebuilt genai client", zap.String("provider", c.cfg.Provider))
	}
	c.key, c.client = key, sdk
	return sdk, nil
}

func generationConfig(in Request) (*genai.GenerateContentConfig, error) {
	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(in.MaxOutputTokens),
	}
	if in.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*in.Temperature))
	}
	// Without a schema the model answers in prose around an inline template.
	if in.Schema == nil {
		return gc, nil
	}
	schema, err := toSchema(in.Schema)
	if err != nil {
		return nil, err
	}
	gc.ResponseMIMEType = "application/json"
	gc.ResponseSchema = schema
	return gc, nil
}

// toSchema converts an OpenAPI-style schema map into the SDK's Schema type.
func toSchema(m map[string]any) (*genai.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var s genai.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("convert schema: %w", err)
	}
	return &s, nil
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	if c.cfg.Keys != nil {
		key, err := c.cfg.Keys.GetAPIKey(ctx, c.cfg.Provider)
		if err == nil && strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), nil
		}
		if err != nil {
			c.cfg.Logger.Warn("api key lookup failed, using fallback",
				zap.String("provider", c.cfg.Provider), zap.Error(err))
		}
	}
	if key := strings.TrimSpace(c.cfg.FallbackKey); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no api key configured for %s", c.cfg.Provider)
}

// classifyErr maps an SDK error onto a Kind. API errors are classified by
// status; anything else is a transport failure.
func classifyErr(model string, err error) *Error {
	var ae genai.APIError
	if errors.As(err, &ae) {
		return classifyStatus(model, ae.Code, ae.Message)
	}
	var aep *genai.APIError
	if errors.As(err, &aep) && aep != nil {
		return classifyStatus(model, aep.Code, aep.Message)
	}
	return &Error{Kind: KindRequest, Model: model, Err: err}
}

func classifyStatus(model string, status int, msg string) *Error {
	msg = strings.TrimSpace(msg)
	lower := strings.ToLower(msg)
	kind := KindRequest
	switch {
	case status == http.StatusNotFound:
		kind = KindModelUnavailable
	case status == http.StatusBadRequest &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "not supported") || strings.Contains(lower, "unsupported")):
		kind = KindModelUnavailable
	}
	return &Error{Kind: kind, Model: model, Status: status, Msg: msg}
}
