package form

import (
	"strconv"
	"strings"

	"github.com/Brownie44l1/retinascan/internal/api"
)

const (
	BadgeNormal  = "badge-normal"
	BadgeDisease = "badge-disease"

	normalLabel   = "normal"
	normalHeading = "No Issues Found"
)

// Result is what the result region shows.
type Result struct {
	BadgeClass  string
	BadgeText   string
	Heading     string
	Confidence  float64
	ModelInfo   string
	Explanation string
}

// BarWidth is the CSS width of the confidence bar.
func (r Result) BarWidth() string {
	return strconv.FormatFloat(r.Confidence, 'f', -1, 64) + "%"
}

// Render maps a validated response onto the result region.
func Render(resp *api.PredictResponse) Result {
	conf, _ := resp.Confidence.Percent()

	r := Result{
		Confidence:  conf,
		ModelInfo:   "Analysis based on: " + strings.Join(resp.UsedModels, " + ") + " model(s)",
		Explanation: resp.Explanation,
	}

	if resp.Prediction == normalLabel {
		r.BadgeClass = BadgeNormal
		r.BadgeText = strings.ToUpper(resp.Prediction)
		r.Heading = normalHeading
	} else {
		r.BadgeClass = BadgeDisease
		r.BadgeText = strings.ToUpper(resp.Prediction) + " Detected"
		r.Heading = resp.Prediction
	}
	return r
}
