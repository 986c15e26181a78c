package provider

// EditModelID is the capability model that inpaint and outpaint operations
// are pinned to regardless of the requested model.
const EditModelID = "imagen-3.0-capability-001"

var googleModels = []Model{
	{
		ID:       "gemini-3-pro-image-preview",
		Name:     "Gemini 3 Pro Image",
		Provider: "google",
		Capabilities: []Capability{
			CapTextToImage, CapImageBlend, CapSearchGrounded,
		},
		MaxResolution: Resolution4K,
		AspectRatios:  []string{"1:1", "16:9", "9:16", "4:3", "3:4"},
		PricePerUnit:  0.04,
		QualityScore:  0.90,
		Default:       true,
	},
	{
		ID:            "imagen-4.0-generate-001",
		Name:          "Imagen 4",
		Provider:      "google",
		Capabilities:  []Capability{CapTextToImage},
		MaxResolution: Resolution4K,
		AspectRatios:  []string{"1:1", "16:9", "9:16", "4:3", "3:4"},
		PricePerUnit:  0.04,
		QualityScore:  0.95,
	},
	{
		ID:            "imagen-4.0-ultra-generate-001",
		Name:          "Imagen 4 Ultra",
		Provider:      "google",
		Capabilities:  []Capability{CapTextToImage},
		MaxResolution: Resolution4K,
		AspectRatios:  []string{"1:1", "16:9", "9:16", "4:3", "3:4"},
		PricePerUnit:  0.06,
		QualityScore:  0.97,
	},
	{
		ID:            "imagen-4.0-fast-generate-001",
		Name:          "Imagen 4 Fast",
		Provider:      "google",
		Capabilities:  []Capability{CapTextToImage},
		MaxResolution: Resolution2K,
		AspectRatios:  []string{"1:1", "16:9", "9:16", "4:3", "3:4"},
		PricePerUnit:  0.02,
		QualityScore:  0.85,
	},
	{
		ID:            EditModelID,
		Name:          "Imagen 3 Edit",
		Provider:      "google",
		Capabilities:  []Capability{CapInpainting, CapOutpainting},
		MaxResolution: Resolution1K,
		AspectRatios:  []string{"1:1", "16:9", "9:16", "4:3", "3:4"},
		PricePerUnit:  0.04,
		QualityScore:  0.85,
		Hidden:        true,
	},
}

// Catalog holds the read-only model registry and the cost table derived from
// it. Engine cost estimation and orchestrator dry-run estimation both go
// through UnitCost, so the two can never diverge.
type Catalog struct {
	models []Model
	byID   map[string]Model
}

// NewCatalog builds the default Google catalog.
func NewCatalog() *Catalog {
	return newCatalog(googleModels)
}

func newCatalog(models []Model) *Catalog {
	byID := make(map[string]Model, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	return &Catalog{models: models, byID: byID}
}

// Models returns all catalog entries, hidden ones included.
func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// ByID looks a model up by id.
func (c *Catalog) ByID(id string) (Model, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// Default returns the catalog's default model.
func (c *Catalog) Default() Model {
	for _, m := range c.models {
		if m.Default {
			return m
		}
	}
	return c.models[0]
}

// TierMultiplier is the cost scaling per output resolution.
func TierMultiplier(res Resolution) float64 {
	switch res {
	case Resolution4K:
		return 2.0
	case Resolution2K:
		return 1.5
	default:
		return 1.0
	}
}

// SearchCostMultiplier is the surcharge for search-grounded generation.
const SearchCostMultiplier = 1.5

// UnitCost is the deterministic cost of one generation with the given model
// and resolution tier. Unknown models price as the default model.
func (c *Catalog) UnitCost(modelID string, res Resolution) float64 {
	m, ok := c.byID[modelID]
	if !ok {
		m = c.Default()
	}
	return m.PricePerUnit * TierMultiplier(res)
}

// ModelFor picks the model a request will run on: edit operations pin the
// capability model; everything else uses the preferred model when it is
// known and carries the operation's capability, falling back to the default.
func (c *Catalog) ModelFor(req GenerationRequest) Model {
	op, opErr := req.Operation()
	if opErr == nil && (op.Kind == OpInpaint || op.Kind == OpOutpaint) {
		if m, ok := c.byID[EditModelID]; ok {
			return m
		}
	}
	if req.PreferredModel != "" {
		if m, ok := c.byID[req.PreferredModel]; ok {
			if opErr != nil || m.Supports(op.Kind.RequiredCapability()) {
				return m
			}
		}
	}
	return c.Default()
}

// EstimateCost prices a request before it runs: unit cost for the resolved
// model and tier, times the search surcharge when the request takes the
// search-grounded path. The engine's success-path costing uses this same
// function.
func (c *Catalog) EstimateCost(req GenerationRequest) float64 {
	cost := c.UnitCost(c.ModelFor(req).ID, req.Resolution)
	if op, err := req.Operation(); err == nil && op.Kind == OpSearch {
		cost *= SearchCostMultiplier
	}
	return cost
}
