package web

import (
	"bytes"
	"context"
	"html/template"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Brownie44l1/retinascan/internal/api"
	"github.com/Brownie44l1/retinascan/internal/client"
)

type stubPredictor struct {
	calls int
	got   client.Submission
	resp  *api.PredictResponse
	err   error
}

func (s *stubPredictor) Predict(_ context.Context, sub client.Submission) (*api.PredictResponse, error) {
	if sub.Empty() {
		return nil, client.ErrNoImages
	}
	s.calls++
	s.got = sub
	return s.resp, s.err
}

func newServer(t *testing.T, p *stubPredictor) http.Handler {
	t.Helper()
	s, err := New(p, 10<<20, zap.NewNop().Sugar())
	require.NoError(t, err)
	return s.Router()
}

func formRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, data := range files {
		fw, err := w.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

var pngHeader = []byte("\x89PNG\r\n\x1a\nrest")

func TestIndex(t *testing.T) {
	w := httptest.NewRecorder()
	newServer(t, &stubPredictor{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="oct_file"`)
	assert.Contains(t, body, `name="fundus_file"`)
	assert.Contains(t, body, `id="resultContainer" style="display: none"`)
}

func TestAnalyzeWithoutFiles(t *testing.T) {
	p := &stubPredictor{}
	w := httptest.NewRecorder()
	newServer(t, p).ServeHTTP(w, formRequest(t, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, p.calls)
	assert.Contains(t, w.Body.String(), "Please upload at least one image")
	assert.Contains(t, w.Body.String(), `class="fading"`)
}

func TestAnalyzeNormal(t *testing.T) {
	p := &stubPredictor{resp: &api.PredictResponse{
		Prediction:  "normal",
		Confidence:  "95.50%",
		UsedModels:  []string{"OCT"},
		Explanation: "No abnormalities detected: Healthy retinal scan.",
		ImageURLs:   &api.ImageURLs{OCT: "http://api/uploads/o.png"},
	}}
	w := httptest.NewRecorder()
	newServer(t, p).ServeHTTP(w, formRequest(t, map[string][]byte{api.FieldOCT: pngHeader}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, p.calls)
	assert.NotNil(t, p.got.OCT)
	assert.Nil(t, p.got.Fundus)

	body := w.Body.String()
	assert.Contains(t, body, `prediction-badge badge-normal`)
	assert.Contains(t, body, "<h2>No Issues Found</h2>")
	assert.Contains(t, body, "width: 95.5%")
	assert.Contains(t, body, "Analysis based on: OCT model(s)")
	assert.Contains(t, body, `src="http://api/uploads/o.png"`)
	assert.NotContains(t, body, `style="display: none"`)
}

func TestAnalyzeDiseaseKeepsLocalPreview(t *testing.T) {
	p := &stubPredictor{resp: &api.PredictResponse{
		Prediction: "CSR",
		Confidence: "72.00%",
		UsedModels: []string{"Fundus"},
	}}
	w := httptest.NewRecorder()
	newServer(t, p).ServeHTTP(w, formRequest(t, map[string][]byte{api.FieldFundus: pngHeader}))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `prediction-badge badge-disease`)
	assert.Contains(t, body, "CSR Detected")
	assert.Contains(t, body, `src="data:image/png;base64,`)
}

func TestAnalyzeServiceError(t *testing.T) {
	p := &stubPredictor{err: &client.APIError{Status: 400, Message: "Allowed file types are png, jpg, jpeg."}}
	w := httptest.NewRecorder()
	newServer(t, p).ServeHTTP(w, formRequest(t, map[string][]byte{api.FieldOCT: pngHeader}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Allowed file types are png, jpg, jpeg.")
	assert.Contains(t, body, `id="resultContainer" style="display: none"`)
}

func TestAnalyzeTransportError(t *testing.T) {
	p := &stubPredictor{err: client.ErrAnalysis}
	w := httptest.NewRecorder()
	newServer(t, p).ServeHTTP(w, formRequest(t, map[string][]byte{api.FieldOCT: pngHeader}))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "An error occurred during analysis. Please try again.")
}

func TestSafeURL(t *testing.T) {
	assert.IsType(t, "", safeURL("javascript:alert(1)"))
	assert.IsType(t, "", safeURL("data:text/html;base64,AAAA"))
	assert.Equal(t, "data:image/png;base64,AAAA", string(safeURL("data:image/png;base64,AAAA").(template.URL)))
}
