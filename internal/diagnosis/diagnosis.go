// Package diagnosis merges the per-model predictions into one finding.
package diagnosis

import (
	"errors"
	"fmt"
)

const (
	ModelOCT    = "OCT"
	ModelFundus = "Fundus"

	// Normal is the label the OCT model uses for a healthy scan.
	Normal = "normal"
)

var ErrNoPrediction = errors.New("No valid predictions from uploaded images.")

// Vote is one model's answer.
type Vote struct {
	Model      string
	Class      string
	Confidence float64
}

type Finding struct {
	Prediction  string
	Score       float64
	UsedModels  []string
	Explanation string
}

// Confidence renders the score as a percentage with two decimals, e.g. "93.12%".
func (f Finding) Confidence() string {
	return fmt.Sprintf("%.2f%%", f.Score*100)
}

// The fundus model names age-related macular degeneration differently.
var aliases = map[string]string{
	"ARMD": "AMD",
}

// Labels both models can produce. When both vote for one of these the
// summed confidence is averaged.
var shared = map[string]bool{
	"AMD": true,
	"DR":  true,
	"MH":  true,
	"CSR": true,
}

// Canonical maps a model label onto the label reported to clients.
func Canonical(class string) string {
	if a, ok := aliases[class]; ok {
		return a
	}
	return class
}

// Combine fuses the votes. Votes with an empty class are skipped. On equal
// scores the label voted first wins.
func Combine(votes ...Vote) (Finding, error) {
	var (
		order  []string
		scores = map[string]float64{}
		used   []string
	)

	for _, v := range votes {
		if v.Class == "" {
			continue
		}
		class := Canonical(v.Class)
		if _, seen := scores[class]; !seen {
			order = append(order, class)
		}
		scores[class] += v.Confidence
		used = append(used, v.Model)
	}

	if len(order) == 0 {
		return Finding{}, ErrNoPrediction
	}

	best := ""
	bestScore := -1.0
	for _, class := range order {
		s := scores[class]
		if shared[class] && s > 1 {
			s /= 2
		}
		if s > bestScore {
			best, bestScore = class, s
		}
	}

	return Finding{
		Prediction:  best,
		Score:       bestScore,
		UsedModels:  used,
		Explanation: Explain(best),
	}, nil
}
