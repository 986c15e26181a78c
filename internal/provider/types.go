package provider

import (
	"errors"
	"strings"
	"time"
)

// Resolution is the output tier of a generation.
type Resolution string

const (
	Resolution1K Resolution = "1K"
	Resolution2K Resolution = "2K"
	Resolution4K Resolution = "4K"
)

// SafetyLevel selects the upstream content-safety threshold.
type SafetyLevel string

const (
	SafetyStrict   SafetyLevel = "strict"
	SafetyModerate SafetyLevel = "moderate"
	SafetyRelaxed  SafetyLevel = "relaxed"
	SafetyNone     SafetyLevel = "none"
)

// EditMode selects an image-editing operation; empty means plain generation.
type EditMode string

const (
	EditModeNone          EditMode = ""
	EditModeInpaintInsert EditMode = "inpaint_insert"
	EditModeInpaintRemove EditMode = "inpaint_remove"
	EditModeOutpaint      EditMode = "outpaint"
	EditModeDescribe      EditMode = "describe"
)

// MaskMode controls how the mask for inpaint/outpaint is obtained.
type MaskMode string

const (
	MaskModeUserProvided MaskMode = "user_provided"
	MaskModeForeground   MaskMode = "foreground"
	MaskModeBackground   MaskMode = "background"
	MaskModeSemantic     MaskMode = "semantic"
)

// Image is an encoded image blob with its MIME type.
type Image struct {
	Data []byte
	MIME string
}

// GenerationRequest describes one generation call. It is built once per call
// and passed by value; nothing mutates it downstream.
type GenerationRequest struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Resolution     Resolution
	SafetyLevel    SafetyLevel

	EditMode  EditMode
	MaskMode  MaskMode
	MaskImage *Image

	ReferenceImages []Image

	PreferredModel string
	EnableSearch   bool
	EnableThinking bool

	RequestID string
}

// OpKind is the resolved operation a request maps to.
type OpKind int

const (
	OpBasic OpKind = iota
	OpBlend
	OpSearch
	OpInpaint
	OpOutpaint
	OpDescribe
)

func (k OpKind) String() string {
	switch k {
	case OpBlend:
		return "blend"
	case OpSearch:
		return "search"
	case OpInpaint:
		return "inpaint"
	case OpOutpaint:
		return "outpaint"
	case OpDescribe:
		return "describe"
	default:
		return "basic"
	}
}

// RequiredCapability is the catalog capability a model must carry to run the
// operation.
func (k OpKind) RequiredCapability() Capability {
	switch k {
	case OpBlend:
		return CapImageBlend
	case OpSearch:
		return CapSearchGrounded
	case OpInpaint:
		return CapInpainting
	case OpOutpaint:
		return CapOutpainting
	default:
		return CapTextToImage
	}
}

// Operation is the validated form of a request. It is resolved exactly once,
// before any transport call; downstream code switches on Kind and never
// re-checks the raw request fields.
type Operation struct {
	Kind     OpKind
	Remove   bool     // inpaint removal rather than insertion
	MaskMode MaskMode // resolved mask mode for inpaint
}

// Validation failures happen before any transport call and are never retried.
var (
	ErrSourceImageRequired = errors.New("source image is required")
	ErrMaskImageRequired   = errors.New("mask image is required")
	ErrSingleImageRequired = errors.New("describe requires exactly one reference image")
)

// Operation resolves the request into its operation, checking the modes in
// priority order: inpaint, outpaint, describe, blend, search, basic.
func (r GenerationRequest) Operation() (Operation, error) {
	switch r.EditMode {
	case EditModeInpaintInsert, EditModeInpaintRemove:
		if len(r.ReferenceImages) == 0 {
			return Operation{}, ErrSourceImageRequired
		}
		mode := r.MaskMode
		if mode == "" {
			mode = MaskModeUserProvided
		}
		switch mode {
		case MaskModeUserProvided:
			if r.MaskImage == nil {
				return Operation{}, ErrMaskImageRequired
			}
		case MaskModeForeground, MaskModeBackground, MaskModeSemantic:
			// Provider auto-segments; no mask image needed.
		default:
			return Operation{}, ErrMaskImageRequired
		}
		return Operation{
			Kind:     OpInpaint,
			Remove:   r.EditMode == EditModeInpaintRemove,
			MaskMode: mode,
		}, nil

	case EditModeOutpaint:
		// Outpaint has no auto-detect path; both inputs are mandatory.
		if len(r.ReferenceImages) == 0 {
			return Operation{}, ErrSourceImageRequired
		}
		if r.MaskImage == nil {
			return Operation{}, ErrMaskImageRequired
		}
		return Operation{Kind: OpOutpaint, MaskMode: MaskModeUserProvided}, nil

	case EditModeDescribe:
		if len(r.ReferenceImages) != 1 {
			return Operation{}, ErrSingleImageRequired
		}
		return Operation{Kind: OpDescribe}, nil
	}

	if len(r.ReferenceImages) > 0 {
		return Operation{Kind: OpBlend}, nil
	}
	if r.EnableSearch {
		return Operation{Kind: OpSearch}, nil
	}
	return Operation{Kind: OpBasic}, nil
}

// GenerationResult is the single outcome value of a generation call. The
// engine contract guarantees exactly one Result per request; expected
// failures arrive here, never as an error return.
type GenerationResult struct {
	Success bool

	Image         *Image
	TextResponse  string
	Thinking      string
	SearchSources string

	Provider string
	Model    string

	Duration time.Duration
	// Cost is set only when Success is true.
	Cost float64

	Error         string
	ErrorType     string
	Retryable     bool
	SafetyBlocked bool
}

// Capability enumerates what a catalog model can do.
type Capability string

const (
	CapTextToImage    Capability = "text_to_image"
	CapImageBlend     Capability = "image_blend"
	CapSearchGrounded Capability = "search_grounded"
	CapInpainting     Capability = "inpainting"
	CapOutpainting    Capability = "outpainting"
)

// Model is a read-only catalog entry describing one backend model. Entries
// are created at process start and never mutated.
type Model struct {
	ID            string
	Name          string
	Provider      string
	Capabilities  []Capability
	MaxResolution Resolution
	AspectRatios  []string
	// PricePerUnit is the 1K base price in USD; higher tiers scale it.
	PricePerUnit float64
	QualityScore float64
	Default      bool
	Hidden       bool
}

// Supports reports whether the model carries the capability.
func (m Model) Supports(c Capability) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// SupportsResolution reports whether the model can render the tier.
func (m Model) SupportsResolution(res Resolution) bool {
	order := map[Resolution]int{Resolution1K: 0, Resolution2K: 1, Resolution4K: 2}
	want, ok := order[res]
	if !ok {
		return false
	}
	return want <= order[m.MaxResolution]
}

// NormalizeResolution maps free-form input onto a tier, defaulting to 1K.
func NormalizeResolution(raw string) Resolution {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "2K":
		return Resolution2K
	case "4K":
		return Resolution4K
	default:
		return Resolution1K
	}
}
