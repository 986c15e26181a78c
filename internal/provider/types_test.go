package provider

import (
	"errors"
	"testing"
)

func png() *Image { return &Image{Data: []byte{1}, MIME: "image/png"} }

func TestOperationDispatchPriority(t *testing.T) {
	cases := []struct {
		name string
		req  GenerationRequest
		want OpKind
	}{
		{"basic", GenerationRequest{Prompt: "p"}, OpBasic},
		{"search", GenerationRequest{Prompt: "p", EnableSearch: true}, OpSearch},
		{"blend", GenerationRequest{Prompt: "p", ReferenceImages: []Image{*png()}}, OpBlend},
		// References plus search take the blend path; search applies only
		// without reference images.
		{"blend over search", GenerationRequest{Prompt: "p", EnableSearch: true, ReferenceImages: []Image{*png()}}, OpBlend},
		{"describe", GenerationRequest{Prompt: "p", EditMode: EditModeDescribe, ReferenceImages: []Image{*png()}}, OpDescribe},
		{
			"inpaint over blend",
			GenerationRequest{Prompt: "p", EditMode: EditModeInpaintInsert, MaskMode: MaskModeForeground, ReferenceImages: []Image{*png(), *png()}},
			OpInpaint,
		},
		{
			"outpaint",
			GenerationRequest{Prompt: "p", EditMode: EditModeOutpaint, ReferenceImages: []Image{*png()}, MaskImage: png()},
			OpOutpaint,
		},
	}
	for _, tc := range cases {
		op, err := tc.req.Operation()
		if err != nil {
			t.Errorf("%s: Operation() error: %v", tc.name, err)
			continue
		}
		if op.Kind != tc.want {
			t.Errorf("%s: kind = %v, want %v", tc.name, op.Kind, tc.want)
		}
	}
}

func TestOperationInpaintMaskModes(t *testing.T) {
	base := GenerationRequest{Prompt: "p", EditMode: EditModeInpaintInsert, ReferenceImages: []Image{*png()}}

	// Explicit user_provided without a mask image fails before any call.
	req := base
	req.MaskMode = MaskModeUserProvided
	if _, err := req.Operation(); !errors.Is(err, ErrMaskImageRequired) {
		t.Fatalf("err = %v, want ErrMaskImageRequired", err)
	}

	// Empty mask mode defaults to user_provided and needs the mask too.
	if _, err := base.Operation(); !errors.Is(err, ErrMaskImageRequired) {
		t.Fatalf("default mode err = %v, want ErrMaskImageRequired", err)
	}

	// Auto-segmentation modes proceed without a mask image.
	for _, mode := range []MaskMode{MaskModeForeground, MaskModeBackground, MaskModeSemantic} {
		req := base
		req.MaskMode = mode
		op, err := req.Operation()
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		if op.MaskMode != mode {
			t.Fatalf("mode %q resolved to %q", mode, op.MaskMode)
		}
	}

	// Removal carries through.
	req = base
	req.EditMode = EditModeInpaintRemove
	req.MaskMode = MaskModeBackground
	op, err := req.Operation()
	if err != nil {
		t.Fatalf("removal: %v", err)
	}
	if !op.Remove {
		t.Fatal("removal flag not set")
	}
}

func TestOperationValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		req  GenerationRequest
		want error
	}{
		{"inpaint without source", GenerationRequest{EditMode: EditModeInpaintInsert, MaskMode: MaskModeForeground}, ErrSourceImageRequired},
		{"outpaint without source", GenerationRequest{EditMode: EditModeOutpaint, MaskImage: png()}, ErrSourceImageRequired},
		{"outpaint without mask", GenerationRequest{EditMode: EditModeOutpaint, ReferenceImages: []Image{*png()}}, ErrMaskImageRequired},
		{"describe without image", GenerationRequest{EditMode: EditModeDescribe}, ErrSingleImageRequired},
		{"describe with two images", GenerationRequest{EditMode: EditModeDescribe, ReferenceImages: []Image{*png(), *png()}}, ErrSingleImageRequired},
	}
	for _, tc := range cases {
		if _, err := tc.req.Operation(); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestNormalizeResolution(t *testing.T) {
	cases := map[string]Resolution{
		"1k": Resolution1K,
		"2K": Resolution2K,
		"4k": Resolution4K,
		"":   Resolution1K,
		"8K": Resolution1K,
	}
	for in, want := range cases {
		if got := NormalizeResolution(in); got != want {
			t.Errorf("NormalizeResolution(%q) = %q, want %q", in, got, want)
		}
	}
}
