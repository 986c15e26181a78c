package store

import (
	"context"
	"fmt"

	"bananalab/internal/domain"
	"bananalab/internal/infra"
	"bananalab/internal/sqlinline"
)

// TemplateStore persists prompt templates and their completion markers.
// Updates run as single autocommitted statements, so every marker write is
// durable before the next work item starts.
type TemplateStore struct {
	sql infra.SQLExecutor
}

func NewTemplateStore(sql infra.SQLExecutor) *TemplateStore {
	return &TemplateStore{sql: sql}
}

// SelectPendingPreviews returns templates whose preview marker is still
// null, oldest first. limit 0 means unbounded.
func (s *TemplateStore) SelectPendingPreviews(ctx context.Context, limit int) ([]domain.Template, error) {
	return s.selectTemplates(ctx, sqlinline.QSelectPendingPreviews, limit)
}

// SelectForUpscale returns previewed templates without a 4K render, best
// quality first. limit 0 means unbounded.
func (s *TemplateStore) SelectForUpscale(ctx context.Context, limit int) ([]domain.Template, error) {
	return s.selectTemplates(ctx, sqlinline.QSelectForUpscale, limit)
}

// SelectTopQuality returns live templates ranked by quality score.
func (s *TemplateStore) SelectTopQuality(ctx context.Context, limit int) ([]domain.Template, error) {
	return s.selectTemplates(ctx, sqlinline.QSelectTopQuality, limit)
}

func (s *TemplateStore) selectTemplates(ctx context.Context, query string, limit int) ([]domain.Template, error) {
	rows, err := s.sql.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		var t domain.Template
		if err := rows.Scan(
			&t.ID,
			&t.DisplayName,
			&t.Category,
			&t.PromptText,
			&t.QualityScore,
			&t.PreviewImage,
			&t.FourKImage,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// SetPreviewURL records the preview completion marker. It is only ever set,
// never cleared, by batch runs.
func (s *TemplateStore) SetPreviewURL(ctx context.Context, id, url string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QSetPreviewURL, id, url)
	return err
}

// SetFourKURL records the high-resolution completion marker.
func (s *TemplateStore) SetFourKURL(ctx context.Context, id, url string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QSetFourKURL, id, url)
	return err
}

// Insert stores a newly expanded template with null markers.
func (s *TemplateStore) Insert(ctx context.Context, t domain.Template) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QInsertTemplate, t.DisplayName, t.Category, t.PromptText, t.QualityScore)
	var id string
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("insert template: %w", err)
	}
	return id, nil
}

// CountPendingPreviews reports how many templates still need a preview.
func (s *TemplateStore) CountPendingPreviews(ctx context.Context) (int, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QCountPendingPreviews)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountByCategory reports active template counts keyed by category, used by
// the expansion phase to find coverage gaps.
func (s *TemplateStore) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QCountByCategory)
	if err != nil {
		return nil, fmt.Errorf("count templates by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[category] = n
	}
	return counts, rows.Err()
}
