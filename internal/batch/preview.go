package batch

import (
	"context"
	"fmt"

	"bananalab/internal/domain"
	"bananalab/internal/provider"
)

// TemplateSource is the slice of template persistence the batch phases need.
type TemplateSource interface {
	SelectPendingPreviews(ctx context.Context, limit int) ([]domain.Template, error)
	SelectForUpscale(ctx context.Context, limit int) ([]domain.Template, error)
	SelectTopQuality(ctx context.Context, limit int) ([]domain.Template, error)
	SetPreviewURL(ctx context.Context, id, url string) error
	SetFourKURL(ctx context.Context, id, url string) error
	Insert(ctx context.Context, t domain.Template) (string, error)
	CountByCategory(ctx context.Context) (map[string]int, error)
}

// PreviewPhase fills missing template previews. Selection keys off the null
// preview URL, so a rerun picks up exactly where the last run stopped.
type PreviewPhase struct {
	templates TemplateSource
}

func NewPreviewPhase(templates TemplateSource) *PreviewPhase {
	return &PreviewPhase{templates: templates}
}

func (p *PreviewPhase) Name() string { return "preview" }

func (p *PreviewPhase) Select(ctx context.Context, batchSize int) ([]WorkItem, error) {
	pending, err := p.templates.SelectPendingPreviews(ctx, batchSize)
	if err != nil {
		return nil, err
	}

	items := make([]WorkItem, 0, len(pending))
	for _, t := range pending {
		t := t
		items = append(items, WorkItem{
			ID:   t.ID,
			Name: t.DisplayName,
			Key:  PreviewKey(t),
			Request: provider.GenerationRequest{
				Prompt:      t.PromptText,
				AspectRatio: domain.AspectRatioFor(t.Category),
				Resolution:  provider.Resolution1K,
				SafetyLevel: provider.SafetyModerate,
				RequestID:   t.ID,
			},
			Commit: func(ctx context.Context, url string) error {
				return p.templates.SetPreviewURL(ctx, t.ID, url)
			},
		})
	}
	return items, nil
}

// PreviewKey is the storage key for a template's preview render.
func PreviewKey(t domain.Template) string {
	return fmt.Sprintf("templates/preview/%s/%s.png", Slugify(t.Category), Slugify(t.DisplayName))
}
