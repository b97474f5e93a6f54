package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/retinascan/internal/api"
	"github.com/Brownie44l1/retinascan/internal/diagnosis"
	"github.com/Brownie44l1/retinascan/internal/imaging"
	"github.com/Brownie44l1/retinascan/internal/model"
	"github.com/Brownie44l1/retinascan/internal/storage"
)

const (
	msgNoImages    = "Please upload at least one image"
	msgExtension   = "Allowed file types are png, jpg, jpeg."
	msgBadImage    = "Invalid image format. Supported: JPEG, PNG"
	msgBadForm     = "Failed to parse form"
	msgModelAbsent = "model is not loaded"
)

// Classifier is one loaded image model.
type Classifier interface {
	Predict(inputData []float32) (*model.Prediction, error)
	Info() model.Metadata
}

type Handler struct {
	oct      Classifier
	fundus   Classifier
	store    *storage.Store
	maxBytes int64
	logger   *zap.SugaredLogger
}

// NewHandler wires the models. Either classifier may be nil when its model
// is not deployed; uploads for it are then rejected.
func NewHandler(oct, fundus Classifier, store *storage.Store, maxBytes int64, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		oct:      oct,
		fundus:   fundus,
		store:    store,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"models": gin.H{
			"oct":    h.oct != nil,
			"fundus": h.fundus != nil,
		},
	})
}

type upload struct {
	model      string
	field      string
	classifier Classifier
	header     *multipart.FileHeader
	data       []byte
}

func (h *Handler) Predict(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	if err := c.Request.ParseMultipartForm(h.maxBytes); err != nil {
		h.fail(c, http.StatusBadRequest, msgBadForm, err)
		return
	}

	slots := []upload{
		{model: diagnosis.ModelOCT, field: api.FieldOCT, classifier: h.oct},
		{model: diagnosis.ModelFundus, field: api.FieldFundus, classifier: h.fundus},
	}

	var uploads []upload
	for _, u := range slots {
		header, err := c.FormFile(u.field)
		if errors.Is(err, http.ErrMissingFile) || (err == nil && header.Filename == "") {
			continue
		}
		if err != nil {
			h.fail(c, http.StatusBadRequest, msgBadForm, err)
			return
		}
		u.header = header
		uploads = append(uploads, u)
	}

	if len(uploads) == 0 {
		h.fail(c, http.StatusBadRequest, msgNoImages, nil)
		return
	}

	for i := range uploads {
		u := &uploads[i]
		if !imaging.AllowedFile(u.header.Filename) {
			h.fail(c, http.StatusBadRequest, msgExtension, imaging.ErrExtension)
			return
		}
		if u.classifier == nil {
			h.fail(c, http.StatusServiceUnavailable, u.model+" "+msgModelAbsent, nil)
			return
		}
		data, err := readAll(u.header)
		if err != nil {
			h.fail(c, http.StatusBadRequest, msgBadForm, err)
			return
		}
		u.data = data
	}

	h.logger.Infow("prediction request",
		"request_id", c.GetString("request_id"),
		"files", len(uploads),
	)

	var (
		votes []diagnosis.Vote
		urls  api.ImageURLs
	)
	for _, u := range uploads {
		img, format, err := imaging.Decode(u.data)
		if err != nil {
			h.fail(c, http.StatusBadRequest, msgBadImage, err)
			return
		}

		vote := diagnosis.Vote{Model: u.model}
		meta := u.classifier.Info()
		input := imaging.Tensor(img, meta.ImageSize, meta.Layout == model.LayoutNCHW)
		pred, err := u.classifier.Predict(input)
		if err != nil {
			h.logger.Errorw("prediction failed",
				"request_id", c.GetString("request_id"),
				"model", u.model,
				"error", err,
			)
		} else {
			vote.Class = pred.Class
			vote.Confidence = float64(pred.Confidence)
			h.logger.Debugw("model vote",
				"model", u.model,
				"format", format,
				"class", pred.Class,
				"confidence", pred.Confidence,
			)
		}
		votes = append(votes, vote)

		if h.store != nil {
			url, err := h.store.Save(u.header.Filename, u.data)
			if err != nil {
				h.logger.Warnw("failed to keep upload", "model", u.model, "error", err)
				continue
			}
			if u.field == api.FieldOCT {
				urls.OCT = url
			} else {
				urls.Fundus = url
			}
		}
	}

	finding, err := diagnosis.Combine(votes...)
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err.Error(), err)
		return
	}

	c.JSON(http.StatusOK, api.PredictResponse{
		Prediction:  finding.Prediction,
		Confidence:  api.Confidence(finding.Confidence()),
		UsedModels:  finding.UsedModels,
		Explanation: finding.Explanation,
		ImageURLs:   &urls,
	})
}

func (h *Handler) fail(c *gin.Context, status int, msg string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(status, api.ErrorResponse(msg))
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
