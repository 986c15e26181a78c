package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"bananalab/internal/domain"
	"bananalab/internal/infra"
	"bananalab/internal/provider/genai"
)

// categoryStyles seeds the expander with sub-styles per category so batches
// of generated prompts stay diverse instead of converging on one look.
var categoryStyles = map[string][]string{
	"portrait":       {"cinematic editorial", "classic studio", "fine art surrealist", "vintage film"},
	"landscape":      {"golden hour epic", "misty mountain", "aurora night sky", "autumn forest"},
	"illustration":   {"children's book watercolor", "dark fantasy ink", "retro comic pop art", "minimal line art"},
	"product":        {"clean studio white", "luxury dark mood", "flat lay arrangement", "macro close-up"},
	"architecture":   {"brutalist concrete", "japanese zen minimal", "art deco glamour", "modern glass steel"},
	"anime":          {"shonen action", "slice of life pastel", "mecha sci-fi", "studio ghibli whimsical"},
	"fantasy":        {"high fantasy epic", "dark gothic", "fairy tale whimsical", "mythological"},
	"graphic-design": {"swiss minimal", "retro poster", "gradient mesh", "bold typography"},
	"food":           {"rustic farmhouse", "fine dining plating", "street food vibrant", "overhead flat lay"},
	"abstract":       {"fluid marbling", "geometric bauhaus", "light painting", "generative organic"},
}

// expandQualityThreshold filters generated prompts on the model's own 0-10
// self-score before they reach the library.
const expandQualityThreshold = 7.0

// TemplateExpander generates new prompt templates with a text model. It
// backs the campaign's expansion phase; image credits are untouched.
type TemplateExpander struct {
	client GeminiAPI
	model  string
	logger infra.Logger
}

func NewTemplateExpander(client GeminiAPI, model string, logger infra.Logger) *TemplateExpander {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &TemplateExpander{client: client, model: model, logger: logger}
}

// NewQuietTemplateExpander is NewTemplateExpander with a discarded logger.
func NewQuietTemplateExpander(client GeminiAPI, model string) *TemplateExpander {
	return NewTemplateExpander(client, model, zerolog.New(io.Discard))
}

type expandedTemplate struct {
	DisplayName  string  `json:"display_name"`
	PromptText   string  `json:"prompt_text"`
	QualityScore float64 `json:"quality_score"`
}

// Expand asks the text model for count new templates in the category and
// returns those passing the quality threshold. Callers may get fewer than
// count entries.
func (e *TemplateExpander) Expand(ctx context.Context, category string, count int) ([]domain.Template, error) {
	if e.client == nil || !e.client.Available() {
		return nil, errors.New("text model client not initialized")
	}
	if count <= 0 {
		return nil, nil
	}

	payload := genai.ContentRequest{
		Contents: []genai.Content{{
			Role:  "user",
			Parts: []genai.Part{{Text: buildExpandPrompt(category, count)}},
		}},
		GenerationConfig: &genai.GenerationConfig{
			ResponseModalities: []string{"Text"},
			ResponseMimeType:   "application/json",
			Temperature:        0.9,
		},
	}
	resp, err := e.client.GenerateContent(ctx, e.model, payload)
	if err != nil {
		return nil, fmt.Errorf("expand %s templates: %w", category, err)
	}

	raw := firstText(resp)
	if raw == "" {
		return nil, fmt.Errorf("expand %s templates: empty response", category)
	}
	var generated []expandedTemplate
	if err := json.Unmarshal([]byte(stripFences(raw)), &generated); err != nil {
		return nil, fmt.Errorf("expand %s templates: decode response: %w", category, err)
	}

	templates := make([]domain.Template, 0, len(generated))
	for _, g := range generated {
		if g.DisplayName == "" || g.PromptText == "" {
			continue
		}
		if g.QualityScore < expandQualityThreshold {
			e.logger.Debug().
				Str("category", category).
				Str("template", g.DisplayName).
				Float64("score", g.QualityScore).
				Msg("expander: below quality threshold")
			continue
		}
		templates = append(templates, domain.Template{
			DisplayName:  g.DisplayName,
			Category:     category,
			PromptText:   g.PromptText,
			QualityScore: g.QualityScore,
		})
	}
	e.logger.Info().
		Str("category", category).
		Int("generated", len(generated)).
		Int("passed", len(templates)).
		Msg("expander: category done")
	return templates, nil
}

func buildExpandPrompt(category string, count int) string {
	styles := categoryStyles[category]
	if len(styles) == 0 {
		styles = []string{"general"}
	}
	ratio := domain.AspectRatioFor(category)
	return fmt.Sprintf(
		"You are an expert author of image generation prompts.\n"+
			"Write %d new prompt templates for the %q category, composed for a %s aspect ratio.\n"+
			"Spread them across these sub-styles: %s.\n"+
			"Each prompt must be a single detailed paragraph with subject, lighting, mood and artistic direction.\n"+
			"Self-score each prompt 0-10 for clarity, detail and effectiveness.\n"+
			"Return only a JSON array of objects with keys \"display_name\", \"prompt_text\" and \"quality_score\".",
		count, category, ratio, strings.Join(styles, ", "),
	)
}

// firstText returns the first non-thought text part of the first candidate.
func firstText(resp *genai.ContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if !part.Thought && part.Text != "" {
			return part.Text
		}
	}
	return ""
}

// stripFences removes a markdown code fence wrapper when the model adds one
// despite the JSON mime type.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
