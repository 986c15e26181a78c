package domain

import "time"

// Template is a prompt-library entry whose preview assets are generated in
// bulk. The nullable image URLs act as completion markers: a null value
// means the corresponding asset is still pending, and batch runs select on
// exactly that condition, which is what makes interrupted runs resumable.
type Template struct {
	ID            string
	DisplayName   string
	Category      string
	PromptText    string
	QualityScore  float64
	PreviewImage  *string
	FourKImage    *string
	DeletedAt     *time.Time
	CreatedAt     time.Time
}

// NeedsPreview reports whether the template is eligible for preview fill.
func (t Template) NeedsPreview() bool {
	return t.PreviewImage == nil && t.DeletedAt == nil
}

// CategoryAspectRatios maps a template category to the aspect ratio its
// preview is rendered at. Unknown categories fall back to square.
var CategoryAspectRatios = map[string]string{
	"portrait":       "3:4",
	"landscape":      "16:9",
	"illustration":   "1:1",
	"product":        "1:1",
	"architecture":   "16:9",
	"anime":          "3:4",
	"fantasy":        "16:9",
	"graphic-design": "1:1",
	"food":           "1:1",
	"abstract":       "1:1",
}

// AspectRatioFor returns the preview aspect ratio for a category.
func AspectRatioFor(category string) string {
	if ratio, ok := CategoryAspectRatios[category]; ok {
		return ratio
	}
	return "1:1"
}
