package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bananalab/internal/provider/genai"
)

func textResponse(text string) *genai.ContentResponse {
	return &genai.ContentResponse{
		Candidates: []genai.Candidate{{
			Content: genai.Content{Parts: []genai.Part{{Text: text}}},
		}},
	}
}

func TestExpandStripsFencesAndFiltersByQuality(t *testing.T) {
	payload := "```json\n" + `[
		{"display_name": "Golden Hour Ridge", "prompt_text": "a ridge at golden hour", "quality_score": 8.5},
		{"display_name": "Muddy Field", "prompt_text": "a muddy field", "quality_score": 6.0},
		{"display_name": "", "prompt_text": "nameless", "quality_score": 9.0},
		{"display_name": "Promptless", "prompt_text": "", "quality_score": 9.0}
	]` + "\n```"
	client := &stubGemini{available: true, contentResp: textResponse(payload)}
	e := NewQuietTemplateExpander(client, "")

	templates, err := e.Expand(context.Background(), "landscape", 4)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("got %d templates, want 1 past the filters: %+v", len(templates), templates)
	}
	got := templates[0]
	if got.DisplayName != "Golden Hour Ridge" || got.Category != "landscape" {
		t.Fatalf("template = %+v", got)
	}
	if !almostEqual(got.QualityScore, 8.5) {
		t.Fatalf("quality score = %v", got.QualityScore)
	}

	if len(client.calls) != 1 || client.calls[0].model != "gemini-2.5-flash" {
		t.Fatalf("calls = %+v, want one call on the default text model", client.calls)
	}
	cfg := client.lastContent.GenerationConfig
	if cfg == nil || cfg.ResponseMimeType != "application/json" {
		t.Fatalf("generation config = %+v, want JSON mime type", cfg)
	}
}

func TestExpandPromptNamesCategoryStyles(t *testing.T) {
	client := &stubGemini{available: true, contentResp: textResponse(`[]`)}
	e := NewQuietTemplateExpander(client, "text-model")

	if _, err := e.Expand(context.Background(), "food", 3); err != nil {
		t.Fatalf("Expand: %v", err)
	}
	prompt := client.lastContent.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "rustic farmhouse") || !strings.Contains(prompt, `"food"`) {
		t.Fatalf("prompt missing category styles: %q", prompt)
	}
	if !strings.Contains(prompt, "3 new prompt templates") {
		t.Fatalf("prompt missing count: %q", prompt)
	}
}

func TestExpandSkipsThoughtParts(t *testing.T) {
	client := &stubGemini{available: true, contentResp: &genai.ContentResponse{
		Candidates: []genai.Candidate{{
			Content: genai.Content{Parts: []genai.Part{
				{Text: "planning the list", Thought: true},
				{Text: `[{"display_name": "A", "prompt_text": "p", "quality_score": 7.5}]`},
			}},
		}},
	}}
	e := NewQuietTemplateExpander(client, "")

	templates, err := e.Expand(context.Background(), "abstract", 1)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(templates) != 1 || templates[0].DisplayName != "A" {
		t.Fatalf("templates = %+v", templates)
	}
}

func TestExpandMalformedJSONReturnsError(t *testing.T) {
	client := &stubGemini{available: true, contentResp: textResponse("sorry, here are some ideas:")}
	e := NewQuietTemplateExpander(client, "")

	if _, err := e.Expand(context.Background(), "portrait", 2); err == nil {
		t.Fatal("expected decode error for non-JSON response")
	}
}

func TestExpandTransportErrorWraps(t *testing.T) {
	client := &stubGemini{available: true, contentErr: errors.New("gemini status 503: overloaded")}
	e := NewQuietTemplateExpander(client, "")

	_, err := e.Expand(context.Background(), "portrait", 2)
	if err == nil || !strings.Contains(err.Error(), "portrait") {
		t.Fatalf("err = %v, want wrapped category context", err)
	}
}

func TestExpandUnavailableClientFails(t *testing.T) {
	e := NewQuietTemplateExpander(&stubGemini{available: false}, "")

	if _, err := e.Expand(context.Background(), "anime", 2); err == nil {
		t.Fatal("expected error for unavailable client")
	}
}

func TestExpandZeroCountMakesNoCall(t *testing.T) {
	client := &stubGemini{available: true}
	e := NewQuietTemplateExpander(client, "")

	templates, err := e.Expand(context.Background(), "anime", 0)
	if err != nil || templates != nil {
		t.Fatalf("templates = %v, err = %v", templates, err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("calls = %+v, want none", client.calls)
	}
}
