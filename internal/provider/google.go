package provider

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bananalab/internal/infra"
	"bananalab/internal/metrics"
	"bananalab/internal/provider/genai"
)

// GeminiAPI is the transport contract the engine depends on. Tests stub it;
// production wires *genai.Client.
type GeminiAPI interface {
	GenerateContent(ctx context.Context, model string, req genai.ContentRequest) (*genai.ContentResponse, error)
	EditImage(ctx context.Context, model string, req genai.EditRequest) (*genai.EditResponse, error)
	Available() bool
}

// RetryPolicy bounds the engine's short inner retry around the transport
// call. The orchestrator's escalating outer retry is layered above this one,
// so orchestrated runs disable it (see NoRetry) and keep a single retry
// authority.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy is one retry after a short fixed delay.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 1, Delay: 2 * time.Second}

// NoRetry disables the inner retry entirely.
var NoRetry = RetryPolicy{}

const harmBlockDefault = "BLOCK_MEDIUM_AND_ABOVE"

var safetyThresholds = map[SafetyLevel]string{
	SafetyStrict:   "BLOCK_LOW_AND_ABOVE",
	SafetyModerate: "BLOCK_MEDIUM_AND_ABOVE",
	SafetyRelaxed:  "BLOCK_ONLY_HIGH",
	SafetyNone:     "BLOCK_NONE",
}

var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

func buildSafetySettings(level SafetyLevel) []genai.SafetySetting {
	threshold, ok := safetyThresholds[level]
	if !ok {
		threshold = harmBlockDefault
	}
	settings := make([]genai.SafetySetting, 0, len(harmCategories))
	for _, category := range harmCategories {
		settings = append(settings, genai.SafetySetting{Category: category, Threshold: threshold})
	}
	return settings
}

// GoogleProvider is the generation engine over Google's image models. Its
// Generate contract returns exactly one result per request and never
// propagates an error for expected failure classes.
type GoogleProvider struct {
	client  GeminiAPI
	catalog *Catalog
	retry   RetryPolicy
	logger  infra.Logger

	mu       sync.Mutex
	count    int
	totalDur time.Duration
}

// Option tweaks provider construction.
type Option func(*GoogleProvider)

// WithRetryPolicy overrides the inner retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(g *GoogleProvider) { g.retry = p }
}

// WithLogger attaches a logger.
func WithLogger(logger infra.Logger) Option {
	return func(g *GoogleProvider) { g.logger = logger }
}

// NewGoogleProvider wires the engine with its transport and catalog.
func NewGoogleProvider(client GeminiAPI, catalog *Catalog, opts ...Option) *GoogleProvider {
	g := &GoogleProvider{
		client:  client,
		catalog: catalog,
		retry:   DefaultRetryPolicy,
		logger:  zerolog.New(io.Discard),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name identifies the provider in results.
func (g *GoogleProvider) Name() string { return "google" }

// Catalog exposes the model registry backing this engine.
func (g *GoogleProvider) Catalog() *Catalog { return g.catalog }

// Available reports whether the transport holds credentials.
func (g *GoogleProvider) Available() bool {
	return g.client != nil && g.client.Available()
}

// Generate dispatches the request to its operation mode and returns the
// single result. Validation failures and transport failures both come back
// as failed results; the only panics left are programmer errors.
func (g *GoogleProvider) Generate(ctx context.Context, req GenerationRequest) GenerationResult {
	start := time.Now()
	result := GenerationResult{Provider: g.Name()}

	if !g.Available() {
		result.Error = "google api client not initialized"
		result.ErrorType = ErrorTypeFatal
		result.Duration = time.Since(start)
		return result
	}

	op, err := req.Operation()
	if err != nil {
		result.Error = err.Error()
		result.ErrorType = ErrorTypeFatal
		result.Duration = time.Since(start)
		metrics.GenerationsTotal.WithLabelValues(g.Name(), "invalid").Inc()
		return result
	}

	model := g.catalog.ModelFor(req)
	result.Model = model.ID

	switch op.Kind {
	case OpInpaint, OpOutpaint:
		g.generateEdit(ctx, req, op, model, &result)
	case OpDescribe:
		g.generateDescribe(ctx, req, model, &result)
	default:
		g.generateContent(ctx, req, op, model, &result)
	}

	result.Duration = time.Since(start)
	if result.Success {
		result.Cost = g.catalog.EstimateCost(req)
		g.recordStats(result.Duration)
	}
	g.observe(op, result)
	return result
}

// generateContent handles basic, blend, and search-grounded generation,
// which share the generateContent transport call.
func (g *GoogleProvider) generateContent(ctx context.Context, req GenerationRequest, op Operation, model Model, result *GenerationResult) {
	parts := []genai.Part{{Text: req.Prompt}}
	for _, ref := range req.ReferenceImages {
		parts = append(parts, genai.Part{InlineData: genai.EncodeInline(ref.Data, ref.MIME)})
	}

	cfg := &genai.GenerationConfig{
		ResponseModalities: []string{"Text", "Image"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: req.AspectRatio},
	}
	if req.Resolution == Resolution2K || req.Resolution == Resolution4K {
		cfg.ImageConfig.ImageSize = string(req.Resolution)
	}
	if req.EnableThinking {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

	payload := genai.ContentRequest{
		Contents:         []genai.Content{{Role: "user", Parts: parts}},
		SafetySettings:   buildSafetySettings(req.SafetyLevel),
		GenerationConfig: cfg,
	}
	if op.Kind == OpSearch {
		payload.Tools = []genai.Tool{{GoogleSearch: &struct{}{}}}
	}

	var resp *genai.ContentResponse
	ok := g.callWithRetry(ctx, result, func(callCtx context.Context) error {
		var err error
		resp, err = g.client.GenerateContent(callCtx, model.ID, payload)
		return err
	})
	if !ok {
		return
	}

	if !g.processResponse(resp, result, op.Kind == OpSearch) {
		return
	}
	result.Success = result.Image != nil
	if !result.Success && result.Error == "" {
		result.Error = "no image in response"
		result.ErrorType = ErrorTypeFatal
	}
}

// generateDescribe analyzes a reference image; the output is text only and
// resolution/aspect settings are ignored.
func (g *GoogleProvider) generateDescribe(ctx context.Context, req GenerationRequest, model Model, result *GenerationResult) {
	ref := req.ReferenceImages[0]
	payload := genai.ContentRequest{
		Contents: []genai.Content{{
			Role: "user",
			Parts: []genai.Part{
				{Text: req.Prompt},
				{InlineData: genai.EncodeInline(ref.Data, ref.MIME)},
			},
		}},
		SafetySettings: buildSafetySettings(req.SafetyLevel),
		GenerationConfig: &genai.GenerationConfig{
			ResponseModalities: []string{"Text"},
		},
	}

	var resp *genai.ContentResponse
	ok := g.callWithRetry(ctx, result, func(callCtx context.Context) error {
		var err error
		resp, err = g.client.GenerateContent(callCtx, model.ID, payload)
		return err
	})
	if !ok {
		return
	}

	if !g.processResponse(resp, result, false) {
		return
	}
	result.Success = result.TextResponse != ""
	if !result.Success && result.Error == "" {
		result.Error = "no text in response"
		result.ErrorType = ErrorTypeFatal
	}
}

var maskModes = map[MaskMode]string{
	MaskModeUserProvided: "MASK_MODE_USER_PROVIDED",
	MaskModeForeground:   "MASK_MODE_FOREGROUND",
	MaskModeBackground:   "MASK_MODE_BACKGROUND",
	MaskModeSemantic:     "MASK_MODE_SEMANTIC",
}

// generateEdit handles inpaint and outpaint through the capability model.
func (g *GoogleProvider) generateEdit(ctx context.Context, req GenerationRequest, op Operation, model Model, result *GenerationResult) {
	source := req.ReferenceImages[0]
	refs := []genai.ReferenceImage{{
		ReferenceType: "REFERENCE_TYPE_RAW",
		ReferenceID:   0,
		InlineData:    genai.EncodeInline(source.Data, source.MIME),
	}}

	mask := genai.ReferenceImage{
		ReferenceType: "REFERENCE_TYPE_MASK",
		ReferenceID:   1,
		MaskMode:      maskModes[op.MaskMode],
	}
	if op.MaskMode == MaskModeUserProvided {
		mask.InlineData = genai.EncodeInline(req.MaskImage.Data, req.MaskImage.MIME)
	}
	refs = append(refs, mask)

	editMode := "EDIT_MODE_OUTPAINT"
	if op.Kind == OpInpaint {
		if op.Remove {
			editMode = "EDIT_MODE_INPAINT_REMOVAL"
		} else {
			editMode = "EDIT_MODE_INPAINT_INSERTION"
		}
	}

	payload := genai.EditRequest{
		Prompt:          req.Prompt,
		ReferenceImages: refs,
		EditMode:        editMode,
		NumberOfImages:  1,
	}

	var resp *genai.EditResponse
	ok := g.callWithRetry(ctx, result, func(callCtx context.Context) error {
		var err error
		resp, err = g.client.EditImage(callCtx, model.ID, payload)
		return err
	})
	if !ok {
		return
	}

	if len(resp.GeneratedImages) == 0 {
		result.Error = fmt.Sprintf("no images returned from %s", op.Kind)
		result.ErrorType = ErrorTypeFatal
		return
	}
	data, err := genai.DecodeInline(resp.GeneratedImages[0].Image)
	if err != nil {
		result.Error = err.Error()
		result.ErrorType = ErrorTypeFatal
		return
	}
	mime := resp.GeneratedImages[0].Image.MimeType
	if mime == "" {
		mime = "image/png"
	}
	result.Image = &Image{Data: data, MIME: mime}
	result.Success = true
}

// callWithRetry executes the transport call under the inner retry policy.
// It fills the result's failure fields and returns false when the call did
// not produce a usable response. Safety rejections short-circuit: they are
// never retried, at this layer or the orchestrator's.
func (g *GoogleProvider) callWithRetry(ctx context.Context, result *GenerationResult, call func(context.Context) error) bool {
	var lastErr string
	for attempt := 0; ; attempt++ {
		err := call(ctx)
		if err == nil {
			return true
		}
		lastErr = err.Error()

		class := Classify(lastErr)
		if class == ErrorSafetyBlocked {
			result.SafetyBlocked = true
			result.Error = "content blocked by safety filter"
			result.ErrorType = ErrorTypeSafetyBlocked
			result.Retryable = false
			return false
		}
		if class != ErrorTransient || attempt >= g.retry.MaxRetries {
			break
		}

		g.logger.Warn().
			Int("attempt", attempt+1).
			Str("error", lastErr).
			Dur("delay", g.retry.Delay).
			Msg("engine: transient error, retrying")
		if !sleepCtx(ctx, g.retry.Delay) {
			lastErr = ctx.Err().Error()
			break
		}
	}

	result.Error = lastErr
	result.Retryable = IsRetryable(lastErr)
	if result.Retryable {
		result.ErrorType = ErrorTypeTransient
	} else {
		result.ErrorType = ErrorTypeFatal
	}
	return false
}

// processResponse extracts thinking/text/image parts and grounding sources.
// Returns false when the candidate was blocked by the safety filter.
func (g *GoogleProvider) processResponse(resp *genai.ContentResponse, result *GenerationResult, extractSearch bool) bool {
	if resp == nil || len(resp.Candidates) == 0 {
		return true
	}
	candidate := resp.Candidates[0]

	if candidate.FinishReason == "SAFETY" {
		result.SafetyBlocked = true
		result.Error = "content blocked by safety filter"
		result.ErrorType = ErrorTypeSafetyBlocked
		result.Retryable = false
		return false
	}

	for _, part := range candidate.Content.Parts {
		switch {
		case part.Thought:
			result.Thinking = part.Text
		case part.Text != "":
			result.TextResponse = part.Text
		case part.InlineData != nil:
			data, err := genai.DecodeInline(*part.InlineData)
			if err != nil {
				continue
			}
			mime := part.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			result.Image = &Image{Data: data, MIME: mime}
		}
	}

	if extractSearch && candidate.GroundingMetadata != nil && candidate.GroundingMetadata.SearchEntryPoint != nil {
		result.SearchSources = candidate.GroundingMetadata.SearchEntryPoint.RenderedContent
	}
	return true
}

func (g *GoogleProvider) recordStats(d time.Duration) {
	g.mu.Lock()
	g.count++
	g.totalDur += d
	g.mu.Unlock()
}

// StatsSummary reports how many generations succeeded and their timing.
func (g *GoogleProvider) StatsSummary() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.count == 0 {
		return "no generations recorded"
	}
	avg := g.totalDur / time.Duration(g.count)
	return fmt.Sprintf("generations: %d | total: %s | avg: %s", g.count, g.totalDur.Round(time.Millisecond), avg.Round(time.Millisecond))
}

func (g *GoogleProvider) observe(op Operation, result GenerationResult) {
	outcome := "success"
	switch {
	case result.SafetyBlocked:
		outcome = "safety_blocked"
	case !result.Success:
		outcome = "failure"
	}
	metrics.GenerationsTotal.WithLabelValues(g.Name(), outcome).Inc()
	metrics.GenerationDuration.WithLabelValues(g.Name(), op.Kind.String()).Observe(result.Duration.Seconds())
	if result.Success {
		metrics.GenerationCost.Add(result.Cost)
	}
}

// sleepCtx sleeps for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
