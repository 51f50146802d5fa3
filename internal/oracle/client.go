// Package oracle is a best-effort client for a generative language model used by
// the storefront's assistant features. The model has no availability guarantee:
// every feature decodes into a typed result and degrades to a typed default when
// the model is unconfigured, unreachable or answers with something unparseable.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront/internal/util"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var (
	ErrDisabled      = errors.New("oracle not configured")
	ErrEmptyResponse = errors.New("oracle returned no content")
)

// Config configures a Client
type Config struct {
	APIKey    string
	BaseURL   string
	FastModel string
	ProModel  string
	Timeout   time.Duration
}

// Client calls the generateContent endpoint of a Gemini-compatible API
type Client struct {
	apiKey    string
	baseURL   string
	fastModel string
	proModel  string
	timeout   time.Duration
	http      *http.Client
	logger    *zap.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		fastModel: cfg.FastModel,
		proModel:  cfg.ProModel,
		timeout:   cfg.Timeout,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: util.GetLogger(),
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != "" && c.baseURL != ""
}

type part struct {
	Text         string        `json:"text,omitempty"`
	InlineData   *inlineData   `json:"inlineData,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
	ResponseSchema   any    `json:"responseSchema,omitempty"`
}

type functionDeclaration struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	Tools            []tool            `json:"tools,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// answer is the flattened first candidate
type answer struct {
	Text  string
	Calls []functionCall
}

// prompt builds a single-turn request from text and optional images
func prompt(text string, images ...string) generateRequest {
	parts := make([]part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, part{InlineData: &inlineData{MimeType: "image/jpeg", Data: img}})
	}
	parts = append(parts, part{Text: text})
	return generateRequest{Contents: []content{{Role: "user", Parts: parts}}}
}

func (r generateRequest) expectJSON(schema any) generateRequest {
	r.GenerationConfig = &generationConfig{ResponseMimeType: "application/json", ResponseSchema: schema}
	return r
}

// generate runs one request against model and records metrics for feature
func (c *Client) generate(ctx context.Context, feature, model string, req generateRequest) (*answer, error) {
	if !c.Enabled() {
		util.OracleRequestsTotal.WithLabelValues(feature, "disabled").Inc()
		return nil, ErrDisabled
	}

	ctx, span := util.StartSpan(ctx, "Oracle."+feature, attribute.String("oracle.model", model))
	defer span.End()

	start := time.Now()
	ans, err := c.exchange(ctx, model, req)
	util.OracleLatency.WithLabelValues(feature).Observe(time.Since(start).Seconds())
	if err != nil {
		util.OracleRequestsTotal.WithLabelValues(feature, "error").Inc()
		util.RecordError(span, err)
		return nil, err
	}
	util.OracleRequestsTotal.WithLabelValues(feature, "ok").Inc()
	return ans, nil
}

func (c *Client) exchange(ctx context.Context, model string, req generateRequest) (*answer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model responded %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}

	ans := &answer{}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			ans.Calls = append(ans.Calls, *p.FunctionCall)
		}
		sb.WriteString(p.Text)
	}
	ans.Text = sb.String()
	if ans.Text == "" && len(ans.Calls) == 0 {
		return nil, ErrEmptyResponse
	}
	return ans, nil
}

// degraded logs a feature failure; ErrDisabled is expected and stays quiet
func (c *Client) degraded(feature string, err error) {
	if errors.Is(err, ErrDisabled) {
		return
	}
	c.logger.Warn("Oracle unavailable, using fallback",
		zap.String("feature", feature),
		zap.Error(err))
}
