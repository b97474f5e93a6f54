// Package api holds the JSON and multipart contract of the /predict endpoint.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Multipart field names of a prediction request.
const (
	FieldOCT    = "oct_file"
	FieldFundus = "fundus_file"
)

type ImageURLs struct {
	OCT    string `json:"oct,omitempty"`
	Fundus string `json:"fundus,omitempty"`
}

type PredictResponse struct {
	Error       string     `json:"error,omitempty"`
	Prediction  string     `json:"prediction,omitempty"`
	Confidence  Confidence `json:"confidence,omitempty"`
	UsedModels  []string   `json:"used_models,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
	ImageURLs   *ImageURLs `json:"image_urls,omitempty"`
}

var ErrMalformed = errors.New("malformed prediction response")

// Validate checks the fields a successful response must carry.
func (r *PredictResponse) Validate() error {
	if r.Prediction == "" {
		return errors.Join(ErrMalformed, errors.New("missing prediction"))
	}
	if _, err := r.Confidence.Percent(); err != nil {
		return errors.Join(ErrMalformed, err)
	}
	return nil
}

func ErrorResponse(msg string) PredictResponse {
	return PredictResponse{Error: msg}
}

// Confidence is the server reported percentage. The server sends it as text
// such as "93.12%"; a bare JSON number is accepted too.
type Confidence string

func (c *Confidence) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Confidence(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("confidence must be a number or a string")
	}
	*c = Confidence(n.String())
	return nil
}

var leadingNumber = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// Percent parses the leading number of the value, ignoring any trailing
// text such as a percent sign.
func (c Confidence) Percent() (float64, error) {
	s := strings.TrimSpace(string(c))
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, errors.New("confidence " + strconv.Quote(string(c)) + " is not a number")
	}
	switch m {
	case "Infinity", "+Infinity", "-Infinity":
		return 0, errors.New("confidence " + strconv.Quote(string(c)) + " is not finite")
	}
	return strconv.ParseFloat(m, 64)
}
