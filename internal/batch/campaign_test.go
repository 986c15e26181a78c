package batch

import (
	"context"
	"strings"
	"testing"

	"bananalab/internal/domain"
	"bananalab/internal/provider"
)

func strptr(s string) *string { return &s }

type stubTemplates struct {
	pending  []domain.Template
	upscale  []domain.Template
	top      []domain.Template
	counts   map[string]int
	inserted []domain.Template

	previewURLs map[string]string
	fourKURLs   map[string]string
}

func newStubTemplates() *stubTemplates {
	return &stubTemplates{
		previewURLs: make(map[string]string),
		fourKURLs:   make(map[string]string),
	}
}

func (s *stubTemplates) SelectPendingPreviews(ctx context.Context, limit int) ([]domain.Template, error) {
	return capped(s.pending, limit), nil
}

func (s *stubTemplates) SelectForUpscale(ctx context.Context, limit int) ([]domain.Template, error) {
	return capped(s.upscale, limit), nil
}

func (s *stubTemplates) SelectTopQuality(ctx context.Context, limit int) ([]domain.Template, error) {
	return capped(s.top, limit), nil
}

func (s *stubTemplates) SetPreviewURL(ctx context.Context, id, url string) error {
	s.previewURLs[id] = url
	return nil
}

func (s *stubTemplates) SetFourKURL(ctx context.Context, id, url string) error {
	s.fourKURLs[id] = url
	return nil
}

func (s *stubTemplates) Insert(ctx context.Context, t domain.Template) (string, error) {
	s.inserted = append(s.inserted, t)
	return "id-" + t.DisplayName, nil
}

func (s *stubTemplates) CountByCategory(ctx context.Context) (map[string]int, error) {
	return s.counts, nil
}

func capped(ts []domain.Template, limit int) []domain.Template {
	if limit > 0 && limit < len(ts) {
		return ts[:limit]
	}
	return ts
}

func TestPreviewPhaseBuildsItemsFromPendingTemplates(t *testing.T) {
	templates := newStubTemplates()
	templates.pending = []domain.Template{
		{ID: "t1", DisplayName: "Café Menü Board", Category: "food", PromptText: "a rustic café menu"},
		{ID: "t2", DisplayName: "Neon City", Category: "landscape", PromptText: "a neon skyline"},
	}
	phase := NewPreviewPhase(templates)

	items, err := phase.Select(context.Background(), 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Key != "templates/preview/food/cafe-menu-board.png" {
		t.Fatalf("key = %q", items[0].Key)
	}
	if items[0].Request.Resolution != provider.Resolution1K {
		t.Fatalf("resolution = %q, want 1K", items[0].Request.Resolution)
	}
	if items[0].Request.AspectRatio != "1:1" || items[1].Request.AspectRatio != "16:9" {
		t.Fatalf("aspect ratios = %q, %q", items[0].Request.AspectRatio, items[1].Request.AspectRatio)
	}

	if err := items[1].Commit(context.Background(), "http://x/neon.png"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if templates.previewURLs["t2"] != "http://x/neon.png" {
		t.Fatalf("previewURLs = %v", templates.previewURLs)
	}
}

func TestHighResPhasePinsModelAndCommitsFourKMarker(t *testing.T) {
	templates := newStubTemplates()
	templates.upscale = []domain.Template{
		{ID: "t1", DisplayName: "Mountain Lake", Category: "landscape", PromptText: "a mountain lake", PreviewImage: strptr("u")},
	}
	phase := NewHighResPhase(templates, "")

	items, err := phase.Select(context.Background(), 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].Request.Resolution != provider.Resolution4K {
		t.Fatalf("resolution = %q", items[0].Request.Resolution)
	}
	if items[0].Request.PreferredModel != HighResModelID {
		t.Fatalf("model = %q, want %q", items[0].Request.PreferredModel, HighResModelID)
	}
	if items[0].Key != "templates/preview-4k/landscape/mountain-lake.png" {
		t.Fatalf("key = %q", items[0].Key)
	}

	if err := items[0].Commit(context.Background(), "http://x/4k.png"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if templates.fourKURLs["t1"] != "http://x/4k.png" {
		t.Fatalf("fourKURLs = %v", templates.fourKURLs)
	}
}

func TestComparePhaseFansOutModelsAndSkipsExistingKeys(t *testing.T) {
	templates := newStubTemplates()
	templates.top = []domain.Template{
		{ID: "t1", DisplayName: "Sushi Platter", Category: "food", PromptText: "sushi", PreviewImage: strptr("u")},
	}
	blobs := &stubStore{available: true, keys: []string{
		"templates/compare/imagen-4-0-generate-001/food/sushi-platter.png",
	}}
	phase := NewComparePhase(templates, blobs)

	items, err := phase.Select(context.Background(), 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(items) != len(CompareModels)-1 {
		t.Fatalf("got %d items, want %d", len(items), len(CompareModels)-1)
	}
	for _, item := range items {
		if item.Commit != nil {
			t.Fatalf("comparison item %q has a database commit", item.Name)
		}
		if strings.Contains(item.Key, "imagen-4-0-generate-001") {
			t.Fatalf("existing key was not skipped: %q", item.Key)
		}
	}
}

func TestVariantsPhaseSuffixesPromptsAndNumbersKeys(t *testing.T) {
	templates := newStubTemplates()
	templates.top = []domain.Template{
		{ID: "t1", DisplayName: "Old Harbor", Category: "landscape", PromptText: "an old harbor at dusk", PreviewImage: strptr("u")},
	}
	phase := NewVariantsPhase(templates, &stubStore{available: true}, 2)

	items, err := phase.Select(context.Background(), 0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Key != "templates/variants/landscape/old-harbor_v1.png" {
		t.Fatalf("key = %q", items[0].Key)
	}
	if !strings.HasPrefix(items[0].Request.Prompt, "an old harbor at dusk,") {
		t.Fatalf("prompt = %q, want style suffix appended", items[0].Request.Prompt)
	}
	if items[0].Request.Prompt == items[1].Request.Prompt {
		t.Fatalf("variant prompts are identical")
	}
}

type stubExpander struct {
	calls map[string]int
	err   error
}

func (e *stubExpander) Expand(ctx context.Context, category string, count int) ([]domain.Template, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[category] = count
	out := make([]domain.Template, count)
	for i := range out {
		out[i] = domain.Template{DisplayName: category, Category: category, PromptText: "p"}
	}
	return out, nil
}

func TestCampaignExpandFillsOnlyCategoryGaps(t *testing.T) {
	templates := newStubTemplates()
	templates.counts = map[string]int{}
	for category := range domain.CategoryAspectRatios {
		templates.counts[category] = TargetPerCategory
	}
	templates.counts["food"] = TargetPerCategory - 3

	expander := &stubExpander{}
	c := NewCampaign(nil, templates, &stubStore{available: true}, expander, discardLogger())

	pr, err := c.expandTemplates(context.Background(), false)
	if err != nil {
		t.Fatalf("expandTemplates: %v", err)
	}
	if len(expander.calls) != 1 || expander.calls["food"] != 3 {
		t.Fatalf("expander calls = %v, want food:3 only", expander.calls)
	}
	if pr.Success != 3 || len(templates.inserted) != 3 {
		t.Fatalf("report = %+v, inserted = %d", pr, len(templates.inserted))
	}
}

func TestCampaignRunsPhasesInOrderAndAggregates(t *testing.T) {
	templates := newStubTemplates()
	templates.pending = []domain.Template{
		{ID: "t1", DisplayName: "A", Category: "food", PromptText: "a"},
	}
	templates.upscale = []domain.Template{
		{ID: "t1", DisplayName: "A", Category: "food", PromptText: "a", PreviewImage: strptr("u")},
	}

	engine := &stubEngine{available: true, results: []provider.GenerationResult{okResult(0.04)}}
	blobs := &stubStore{available: true}
	orch := NewQuiet(engine, blobs, provider.NewCatalog())
	recordedSleeps(orch)

	c := NewCampaign(orch, templates, blobs, nil, discardLogger())
	summary, err := c.Run(context.Background(), []int{3, 2}, domain.BatchPayload{Delay: 0.001})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Phases) != 2 {
		t.Fatalf("got %d phase reports, want 2", len(summary.Phases))
	}
	// Ascending order regardless of the requested order.
	if summary.Phases[0].Phase != 2 || summary.Phases[1].Phase != 3 {
		t.Fatalf("phase order = %d, %d", summary.Phases[0].Phase, summary.Phases[1].Phase)
	}
	if summary.TotalOK != 2 || !closeEnough(summary.TotalCost, 0.08) {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestCampaignStopsPhasesWhenBudgetSpent(t *testing.T) {
	templates := newStubTemplates()
	templates.pending = []domain.Template{
		{ID: "t1", DisplayName: "A", Category: "food", PromptText: "a"},
	}
	templates.upscale = []domain.Template{
		{ID: "t1", DisplayName: "A", Category: "food", PromptText: "a", PreviewImage: strptr("u")},
	}

	engine := &stubEngine{available: true, results: []provider.GenerationResult{okResult(0.04)}}
	blobs := &stubStore{available: true}
	orch := NewQuiet(engine, blobs, provider.NewCatalog())
	recordedSleeps(orch)

	c := NewCampaign(orch, templates, blobs, nil, discardLogger())
	summary, err := c.Run(context.Background(), []int{2, 3}, domain.BatchPayload{Delay: 0.001, Budget: 0.03})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Phases) != 1 || summary.Phases[0].Phase != 2 {
		t.Fatalf("phases = %+v, want only phase 2", summary.Phases)
	}
	if engine.calls != 1 {
		t.Fatalf("engine calls = %d, want 1", engine.calls)
	}
	if !closeEnough(summary.TotalCost, 0.04) {
		t.Fatalf("total cost = %v", summary.TotalCost)
	}
}

func TestCampaignDryRunSpendsNothing(t *testing.T) {
	templates := newStubTemplates()
	templates.pending = []domain.Template{
		{ID: "t1", DisplayName: "A", Category: "food", PromptText: "a"},
	}

	engine := &stubEngine{available: true}
	orch := NewQuiet(engine, &stubStore{available: true}, provider.NewCatalog())
	c := NewCampaign(orch, templates, &stubStore{available: true}, nil, discardLogger())

	summary, err := c.Run(context.Background(), []int{2}, domain.BatchPayload{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if engine.calls != 0 {
		t.Fatalf("dry run made %d transport calls", engine.calls)
	}
	if summary.Phases[0].Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}
