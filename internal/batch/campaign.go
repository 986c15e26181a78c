package batch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bananalab/internal/domain"
	"bananalab/internal/infra"
	"bananalab/internal/provider"
	"bananalab/internal/storage"
)

// CompareModels are the models exercised by the comparison phase.
var CompareModels = []string{
	"gemini-3-pro-image-preview",
	"imagen-4.0-generate-001",
	"imagen-4.0-ultra-generate-001",
	"imagen-4.0-fast-generate-001",
}

// VariantStyles are the prompt suffixes for the style-variant phase, in the
// order variants are numbered.
var VariantStyles = []string{
	", reimagined in oil painting style with visible brushstrokes and impasto texture",
	", reimagined as a pencil sketch with cross-hatching and charcoal shading",
	", reimagined in watercolor style with soft wet-on-wet washes and paper texture",
}

// HighResModelID is the default model for the high-resolution phase.
const HighResModelID = "imagen-4.0-generate-001"

// HighResPhase re-renders templates at 4K. Eligibility is a present preview
// marker and an absent 4K marker, so completed items drop out of selection.
type HighResPhase struct {
	templates TemplateSource
	modelID   string
}

func NewHighResPhase(templates TemplateSource, modelID string) *HighResPhase {
	if modelID == "" {
		modelID = HighResModelID
	}
	return &HighResPhase{templates: templates, modelID: modelID}
}

func (p *HighResPhase) Name() string { return "highres" }

func (p *HighResPhase) Select(ctx context.Context, batchSize int) ([]WorkItem, error) {
	eligible, err := p.templates.SelectForUpscale(ctx, batchSize)
	if err != nil {
		return nil, err
	}

	items := make([]WorkItem, 0, len(eligible))
	for _, t := range eligible {
		t := t
		items = append(items, WorkItem{
			ID:   t.ID,
			Name: t.DisplayName,
			Key:  fmt.Sprintf("templates/preview-4k/%s/%s.png", Slugify(t.Category), Slugify(t.DisplayName)),
			Request: provider.GenerationRequest{
				Prompt:         t.PromptText,
				AspectRatio:    domain.AspectRatioFor(t.Category),
				Resolution:     provider.Resolution4K,
				SafetyLevel:    provider.SafetyModerate,
				PreferredModel: p.modelID,
				RequestID:      t.ID,
			},
			Commit: func(ctx context.Context, url string) error {
				return p.templates.SetFourKURL(ctx, t.ID, url)
			},
		})
	}
	return items, nil
}

// ComparePhase renders the top templates once per comparison model. These
// renders have no database marker; the storage key itself is the completion
// record, so selection drops keys that already exist.
type ComparePhase struct {
	templates TemplateSource
	blobs     storage.Store
}

func NewComparePhase(templates TemplateSource, blobs storage.Store) *ComparePhase {
	return &ComparePhase{templates: templates, blobs: blobs}
}

func (p *ComparePhase) Name() string { return "compare" }

func (p *ComparePhase) Select(ctx context.Context, batchSize int) ([]WorkItem, error) {
	top, err := p.templates.SelectTopQuality(ctx, batchSize)
	if err != nil {
		return nil, err
	}
	done, err := existingKeys(ctx, p.blobs, "templates/compare/")
	if err != nil {
		return nil, err
	}

	var items []WorkItem
	for _, t := range top {
		for _, modelID := range CompareModels {
			key := fmt.Sprintf("templates/compare/%s/%s/%s.png",
				strings.ReplaceAll(modelID, ".", "-"), Slugify(t.Category), Slugify(t.DisplayName))
			if done[key] {
				continue
			}
			items = append(items, WorkItem{
				ID:   t.ID,
				Name: fmt.Sprintf("%s [%s]", t.DisplayName, modelID),
				Key:  key,
				Request: provider.GenerationRequest{
					Prompt:         t.PromptText,
					AspectRatio:    domain.AspectRatioFor(t.Category),
					Resolution:     provider.Resolution1K,
					SafetyLevel:    provider.SafetyModerate,
					PreferredModel: modelID,
					RequestID:      t.ID,
				},
			})
		}
	}
	return items, nil
}

// VariantsPhase renders numbered style variants of the top templates. Like
// the comparison phase it is keyed purely on storage.
type VariantsPhase struct {
	templates   TemplateSource
	blobs       storage.Store
	perTemplate int
}

func NewVariantsPhase(templates TemplateSource, blobs storage.Store, perTemplate int) *VariantsPhase {
	if perTemplate <= 0 || perTemplate > len(VariantStyles) {
		perTemplate = 2
	}
	return &VariantsPhase{templates: templates, blobs: blobs, perTemplate: perTemplate}
}

func (p *VariantsPhase) Name() string { return "variants" }

func (p *VariantsPhase) Select(ctx context.Context, batchSize int) ([]WorkItem, error) {
	top, err := p.templates.SelectTopQuality(ctx, batchSize)
	if err != nil {
		return nil, err
	}
	done, err := existingKeys(ctx, p.blobs, "templates/variants/")
	if err != nil {
		return nil, err
	}

	var items []WorkItem
	for _, t := range top {
		for v := 0; v < p.perTemplate; v++ {
			key := fmt.Sprintf("templates/variants/%s/%s_v%d.png",
				Slugify(t.Category), Slugify(t.DisplayName), v+1)
			if done[key] {
				continue
			}
			items = append(items, WorkItem{
				ID:   t.ID,
				Name: fmt.Sprintf("%s v%d", t.DisplayName, v+1),
				Key:  key,
				Request: provider.GenerationRequest{
					Prompt:      t.PromptText + VariantStyles[v],
					AspectRatio: domain.AspectRatioFor(t.Category),
					Resolution:  provider.Resolution1K,
					SafetyLevel: provider.SafetyModerate,
					RequestID:   t.ID,
				},
			})
		}
	}
	return items, nil
}

func existingKeys(ctx context.Context, blobs storage.Store, prefix string) (map[string]bool, error) {
	keys, err := blobs.ListKeys(ctx, prefix, 10000)
	if err != nil {
		return nil, fmt.Errorf("list existing keys: %w", err)
	}
	done := make(map[string]bool, len(keys))
	for _, k := range keys {
		done[k] = true
	}
	return done, nil
}

// PromptExpander produces new templates for a category, typically backed by
// a text model. The expansion phase treats it as a black box.
type PromptExpander interface {
	Expand(ctx context.Context, category string, count int) ([]domain.Template, error)
}

// TargetPerCategory is the coverage target the expansion phase fills up to.
const TargetPerCategory = 40

// PhaseReport is one campaign phase's outcome.
type PhaseReport struct {
	Phase    int     `json:"phase"`
	Name     string  `json:"name"`
	Success  int     `json:"success"`
	Fail     int     `json:"fail"`
	Skipped  int     `json:"skipped"`
	Cost     float64 `json:"cost"`
	Duration float64 `json:"duration_seconds"`
}

// RunSummary aggregates a campaign run across its phases.
type RunSummary struct {
	Phases     []PhaseReport `json:"phases"`
	TotalCost  float64       `json:"total_cost"`
	TotalOK    int           `json:"total_success"`
	TotalFail  int           `json:"total_fail"`
	ElapsedSec float64       `json:"elapsed_seconds"`
}

// Campaign runs numbered phases over the template library:
//
//	1  expand the prompt library via the text model
//	2  fill missing 1K previews
//	3  re-render top templates at 4K
//	4  render top templates across all comparison models
//	5  render numbered style variants
//
// Each image phase goes through the orchestrator, so retry, timeout and
// marker semantics are identical everywhere.
type Campaign struct {
	orch      *Orchestrator
	templates TemplateSource
	blobs     storage.Store
	expander  PromptExpander
	logger    infra.Logger

	// VariantsPerTemplate caps phase 5 output per template.
	VariantsPerTemplate int
	// HighResModel overrides the phase 3 model when non-empty.
	HighResModel string
	// ItemTimeout bounds one generation call; zero uses the orchestrator
	// default.
	ItemTimeout time.Duration
	// DefaultDelay applies when the payload leaves the inter-item delay
	// unset.
	DefaultDelay time.Duration
}

func NewCampaign(orch *Orchestrator, templates TemplateSource, blobs storage.Store, expander PromptExpander, logger infra.Logger) *Campaign {
	return &Campaign{
		orch:                orch,
		templates:           templates,
		blobs:               blobs,
		expander:            expander,
		logger:              logger,
		VariantsPerTemplate: 2,
	}
}

// Run executes the requested phases in ascending numeric order. A phase
// failure stops the campaign; completed phases keep their markers, so a
// rerun resumes from remaining work.
func (c *Campaign) Run(ctx context.Context, phases []int, payload domain.BatchPayload) (RunSummary, error) {
	opts := Options{
		Delay:       time.Duration(payload.Delay * float64(time.Second)),
		BatchSize:   payload.BatchSize,
		DryRun:      payload.DryRun,
		ItemTimeout: c.ItemTimeout,
	}
	if opts.Delay == 0 {
		opts.Delay = c.DefaultDelay
	}

	var summary RunSummary
	start := time.Now()
	defer func() { summary.ElapsedSec = time.Since(start).Seconds() }()

	for _, n := range []int{1, 2, 3, 4, 5} {
		if !containsPhase(phases, n) {
			continue
		}
		if payload.Budget > 0 {
			remaining := payload.Budget - summary.TotalCost
			if remaining <= 0 {
				c.logger.Warn().
					Int("phase", n).
					Float64("spent", summary.TotalCost).
					Msg("campaign: budget exhausted, stopping")
				break
			}
			opts.Budget = remaining
		}
		phaseStart := time.Now()

		var pr PhaseReport
		var err error
		if n == 1 {
			pr, err = c.expandTemplates(ctx, opts.DryRun)
		} else {
			var phase Phase
			switch n {
			case 2:
				phase = NewPreviewPhase(c.templates)
			case 3:
				phase = NewHighResPhase(c.templates, c.HighResModel)
			case 4:
				phase = NewComparePhase(c.templates, c.blobs)
			case 5:
				phase = NewVariantsPhase(c.templates, c.blobs, c.VariantsPerTemplate)
			}
			var report Report
			report, err = c.orch.Run(ctx, phase, opts)
			pr = PhaseReport{
				Phase:   n,
				Name:    phase.Name(),
				Success: report.Success,
				Fail:    report.Fail,
				Skipped: report.Skipped,
				Cost:    report.Cost,
			}
		}
		pr.Duration = time.Since(phaseStart).Seconds()
		summary.Phases = append(summary.Phases, pr)
		summary.TotalCost += pr.Cost
		summary.TotalOK += pr.Success
		summary.TotalFail += pr.Fail

		if err != nil {
			return summary, fmt.Errorf("phase %d: %w", n, err)
		}
		c.logger.Info().
			Int("phase", n).
			Str("name", pr.Name).
			Int("success", pr.Success).
			Int("fail", pr.Fail).
			Float64("cost", pr.Cost).
			Msg("campaign: phase done")
	}
	return summary, nil
}

// expandTemplates is phase 1: fill each category up to the coverage target
// with freshly expanded prompts. It spends no image credits.
func (c *Campaign) expandTemplates(ctx context.Context, dryRun bool) (PhaseReport, error) {
	pr := PhaseReport{Phase: 1, Name: "expand"}
	if c.expander == nil {
		c.logger.Info().Msg("campaign: no expander configured, skipping expansion")
		return pr, nil
	}

	counts, err := c.templates.CountByCategory(ctx)
	if err != nil {
		return pr, err
	}

	for category := range domain.CategoryAspectRatios {
		needed := TargetPerCategory - counts[category]
		if needed <= 0 {
			continue
		}
		if dryRun {
			pr.Skipped += needed
			continue
		}

		expanded, err := c.expander.Expand(ctx, category, needed)
		if err != nil {
			c.logger.Error().Err(err).Str("category", category).Msg("campaign: expansion failed")
			pr.Fail += needed
			continue
		}
		for _, t := range expanded {
			if _, err := c.templates.Insert(ctx, t); err != nil {
				pr.Fail++
				continue
			}
			pr.Success++
		}
	}
	return pr, nil
}

func containsPhase(phases []int, n int) bool {
	for _, p := range phases {
		if p == n {
			return true
		}
	}
	return false
}
