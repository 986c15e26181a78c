package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bananalab/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Gemini REST API. It knows how to invoke
// generateContent for generation/blend/search/describe calls and the Imagen
// capability model's edit endpoint for inpaint/outpaint, and how to surface
// API errors verbatim so callers can classify them.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; a reusable one with a timeout will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Available reports whether the client holds credentials.
func (c *Client) Available() bool {
	return c != nil && c.apiKey != ""
}

// Part is one content fragment in a request or response.
type Part struct {
	Text       string      `json:"text,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64-encoded media.
type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Content is a role-tagged part list.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// SafetySetting sets the block threshold for one harm category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// ImageConfig controls rendering of image output.
type ImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

// ThinkingConfig asks the model to include its reasoning parts.
type ThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

// Tool enables an auxiliary capability for the call.
type Tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

// GenerationConfig is the request-level generation configuration.
type GenerationConfig struct {
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	Temperature        float64         `json:"temperature,omitempty"`
	ImageConfig        *ImageConfig    `json:"imageConfig,omitempty"`
	ThinkingConfig     *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// ContentRequest is the payload for a generateContent call.
type ContentRequest struct {
	Contents         []Content         `json:"contents"`
	Tools            []Tool            `json:"tools,omitempty"`
	SafetySettings   []SafetySetting   `json:"safetySettings,omitempty"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// GroundingMetadata carries search-grounding provenance.
type GroundingMetadata struct {
	SearchEntryPoint *struct {
		RenderedContent string `json:"renderedContent,omitempty"`
	} `json:"searchEntryPoint,omitempty"`
}

// Candidate is one model response candidate.
type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// ContentResponse is the decoded generateContent response.
type ContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// ReferenceImage conditions an edit call. Raw references carry the source
// pixels; mask references carry either user mask pixels or an auto-segment
// mask mode.
type ReferenceImage struct {
	ReferenceType string      `json:"referenceType"`
	ReferenceID   int         `json:"referenceId"`
	InlineData    *InlineData `json:"inlineData,omitempty"`
	MaskMode      string      `json:"maskMode,omitempty"`
	MaskDilation  float64     `json:"maskDilation,omitempty"`
}

// EditRequest is the payload for an Imagen capability-model edit call.
type EditRequest struct {
	Prompt          string           `json:"prompt"`
	ReferenceImages []ReferenceImage `json:"referenceImages"`
	EditMode        string           `json:"editMode"`
	NumberOfImages  int              `json:"numberOfImages,omitempty"`
}

// EditResponse is the decoded edit response.
type EditResponse struct {
	GeneratedImages []struct {
		Image InlineData `json:"image"`
	} `json:"generatedImages"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Status  string `json:"status,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// GenerateContent invokes models/{model}:generateContent.
func (c *Client) GenerateContent(ctx context.Context, model string, req ContentRequest) (*ContentResponse, error) {
	var resp ContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model))
	if err := c.invoke(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", model).
		Int("candidates", len(resp.Candidates)).
		Msg("genai: generateContent ok")
	return &resp, nil
}

// EditImage invokes the capability model's edit endpoint.
func (c *Client) EditImage(ctx context.Context, model string, req EditRequest) (*EditResponse, error) {
	var resp EditResponse
	path := fmt.Sprintf("/models/%s:editImage", url.PathEscape(model))
	if err := c.invoke(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug().
		Str("model", model).
		Int("images", len(resp.GeneratedImages)).
		Msg("genai: editImage ok")
	return &resp, nil
}

func (c *Client) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// The status code stays in the message so error classification can
		// key off "429"/"503" even when the body carries no detail.
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

// EncodeInline wraps raw bytes as inline data.
func EncodeInline(data []byte, mime string) *InlineData {
	return &InlineData{
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

// DecodeInline returns the raw bytes of inline data.
func DecodeInline(d InlineData) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		return nil, fmt.Errorf("decode inline data: %w", err)
	}
	return raw, nil
}
