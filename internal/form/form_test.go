package form

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/retinascan/internal/api"
	"github.com/Brownie44l1/retinascan/internal/client"
)

type fakePredictor struct {
	calls int
	resp  *api.PredictResponse
	err   error
}

func (f *fakePredictor) Predict(_ context.Context, sub client.Submission) (*api.PredictResponse, error) {
	if sub.Empty() {
		return nil, client.ErrNoImages
	}
	f.calls++
	return f.resp, f.err
}

func TestRenderNormal(t *testing.T) {
	r := Render(&api.PredictResponse{
		Prediction:  "normal",
		Confidence:  "97.40%",
		UsedModels:  []string{"OCT"},
		Explanation: "healthy",
	})
	assert.Equal(t, BadgeNormal, r.BadgeClass)
	assert.Equal(t, "NORMAL", r.BadgeText)
	assert.Equal(t, "No Issues Found", r.Heading)
	assert.Equal(t, "97.4%", r.BarWidth())
	assert.Equal(t, "Analysis based on: OCT model(s)", r.ModelInfo)
	assert.Equal(t, "healthy", r.Explanation)
}

func TestRenderDisease(t *testing.T) {
	r := Render(&api.PredictResponse{
		Prediction: "DRUSEN",
		Confidence: "61.25%",
		UsedModels: []string{"OCT", "Fundus"},
	})
	assert.Equal(t, BadgeDisease, r.BadgeClass)
	assert.Equal(t, "DRUSEN Detected", r.BadgeText)
	assert.Equal(t, "DRUSEN", r.Heading)
	assert.Equal(t, "Analysis based on: OCT + Fundus model(s)", r.ModelInfo)
}

func TestBarWidthMatchesConfidence(t *testing.T) {
	for _, c := range []string{"0", "0.5", "12.34", "50", "99.99", "100"} {
		r := Render(&api.PredictResponse{Prediction: "DR", Confidence: api.Confidence(c + "%")})
		assert.Equal(t, c+"%", r.BarWidth())
	}
}

func TestSubmitWithoutFiles(t *testing.T) {
	fp := &fakePredictor{}
	p := NewPage(fp, nil)

	err := p.Submit(context.Background(), client.Submission{})
	assert.ErrorIs(t, err, client.ErrNoImages)
	assert.Zero(t, fp.calls)

	s := p.State()
	assert.Equal(t, "Please upload at least one image", s.Error)
	assert.False(t, s.ShowResult)
}

func TestSubmitServiceError(t *testing.T) {
	fp := &fakePredictor{err: &client.APIError{Status: 400, Message: "Allowed file types are png, jpg, jpeg."}}
	p := NewPage(fp, nil)

	err := p.Submit(context.Background(), client.Submission{OCT: &client.File{Name: "a.gif", Data: []byte("x")}})
	require.Error(t, err)

	s := p.State()
	assert.Equal(t, "Allowed file types are png, jpg, jpeg.", s.Error)
	assert.False(t, s.ShowResult)
}

func TestSubmitTransportError(t *testing.T) {
	fp := &fakePredictor{err: errors.Join(client.ErrAnalysis, errors.New("connection refused"))}
	p := NewPage(fp, nil)

	_ = p.Submit(context.Background(), client.Submission{Fundus: &client.File{Name: "f.png", Data: []byte("x")}})
	assert.Equal(t, "An error occurred during analysis. Please try again.", p.State().Error)
}

func TestSubmitSuccessReplacesPreviews(t *testing.T) {
	fp := &fakePredictor{resp: &api.PredictResponse{
		Prediction: "CNV",
		Confidence: "88.00%",
		UsedModels: []string{"OCT"},
		ImageURLs:  &api.ImageURLs{OCT: "/uploads/o.png"},
	}}
	p := NewPage(fp, nil)

	fundus := &client.File{Name: "f.png", Data: []byte("\x89PNG\r\n\x1a\n")}
	p.Preview(SlotFundus, fundus)
	p.Preview(SlotOCT, &client.File{Name: "o.png", Data: []byte("\x89PNG\r\n\x1a\n")})

	require.NoError(t, p.Submit(context.Background(), client.Submission{OCT: &client.File{Name: "o.png"}, Fundus: fundus}))

	s := p.State()
	assert.True(t, s.ShowResult)
	assert.Empty(t, s.Error)
	assert.Equal(t, "CNV", s.Result.Heading)
	assert.Equal(t, Image{Src: "/uploads/o.png", Alt: "OCT Scan"}, s.OCTPreview)
	assert.True(t, strings.HasPrefix(s.FundusPreview.Src, "data:image/png;base64,"))
}

func TestSubmitHidesPreviousResult(t *testing.T) {
	fp := &fakePredictor{resp: &api.PredictResponse{Prediction: "DR", Confidence: "70%"}}
	p := NewPage(fp, nil)
	sub := client.Submission{OCT: &client.File{Name: "o.png"}}

	require.NoError(t, p.Submit(context.Background(), sub))
	require.True(t, p.State().ShowResult)

	fp.err = &client.APIError{Message: "No valid predictions from uploaded images."}
	require.Error(t, p.Submit(context.Background(), sub))
	assert.False(t, p.State().ShowResult)
}

func TestPreviewClearsSlot(t *testing.T) {
	p := NewPage(&fakePredictor{}, nil)

	p.Preview(SlotOCT, &client.File{Name: "o.png", Data: []byte("abc")})
	assert.NotEmpty(t, p.State().OCTPreview.Src)
	assert.Equal(t, "OCT Scan", p.State().OCTPreview.Alt)

	p.Preview(SlotOCT, nil)
	assert.Equal(t, Image{}, p.State().OCTPreview)

	p.Preview(SlotFundus, &client.File{Name: "empty.png"})
	assert.Equal(t, Image{}, p.State().FundusPreview)
}

func TestNoticeClearsAfterTTL(t *testing.T) {
	n := NewNotice(20 * time.Millisecond)
	n.Show("boom")
	assert.Equal(t, "boom", n.Message())

	assert.Eventually(t, func() bool { return n.Message() == "" }, time.Second, 5*time.Millisecond)
}

func TestNoticeEarlierClearStillFires(t *testing.T) {
	n := NewNotice(300 * time.Millisecond)
	n.Show("first")
	time.Sleep(150 * time.Millisecond)
	n.Show("second")

	// the clear scheduled by "first" empties the region before "second" expires
	assert.Eventually(t, func() bool { return n.Message() == "" }, 250*time.Millisecond, 5*time.Millisecond)
}

func TestWriteText(t *testing.T) {
	fp := &fakePredictor{resp: &api.PredictResponse{
		Prediction:  "normal",
		Confidence:  "91.00%",
		UsedModels:  []string{"OCT", "Fundus"},
		Explanation: "No abnormalities detected: Healthy retinal scan.",
		ImageURLs:   &api.ImageURLs{Fundus: "/uploads/f.jpg"},
	}}
	p := NewPage(fp, nil)
	p.Preview(SlotOCT, &client.File{Name: "o.png", Data: []byte("x")})
	require.NoError(t, p.Submit(context.Background(), client.Submission{OCT: &client.File{Name: "o.png"}}))

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, p.State()))
	out := buf.String()
	assert.Contains(t, out, "OCT:    (local preview)")
	assert.Contains(t, out, "Fundus: /uploads/f.jpg")
	assert.Contains(t, out, "[NORMAL]")
	assert.Contains(t, out, "No Issues Found")
	assert.Contains(t, out, "Confidence: 91%")
	assert.Contains(t, out, "Analysis based on: OCT + Fundus model(s)")
	assert.NotContains(t, out, "Error:")
}
