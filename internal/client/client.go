// Package client submits scans to the prediction endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/Brownie44l1/retinascan/internal/api"
	"go.uber.org/zap"
)

var (
	ErrNoImages = errors.New("Please upload at least one image")
	ErrAnalysis = errors.New("An error occurred during analysis. Please try again.")
)

// APIError is an error message reported by the prediction service itself.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// File is one selected image.
type File struct {
	Name string
	Data []byte
}

// ReadFile loads a file from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{Name: filepath.Base(path), Data: data}, nil
}

// Submission holds the two optional upload slots.
type Submission struct {
	OCT    *File
	Fundus *File
}

func (s Submission) Empty() bool {
	return s.OCT == nil && s.Fundus == nil
}

type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

func New(endpoint string, httpClient *http.Client, logger *zap.SugaredLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{url: endpoint, httpClient: httpClient, logger: logger}
}

// Predict sends one multipart POST carrying only the populated slots.
// It returns ErrNoImages without any network activity when both slots are
// empty, an *APIError when the service answered with an error field, and an
// error wrapping ErrAnalysis for transport, decode or shape failures.
func (c *Client) Predict(ctx context.Context, sub Submission) (*api.PredictResponse, error) {
	if sub.Empty() {
		return nil, ErrNoImages
	}

	body, contentType, err := encode(sub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warnw("prediction request failed", "url", c.url, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}
	defer resp.Body.Close()

	var out api.PredictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		c.logger.Warnw("prediction response unreadable", "status", resp.StatusCode, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	if out.Error != "" {
		return nil, &APIError{Status: resp.StatusCode, Message: out.Error}
	}

	if err := out.Validate(); err != nil {
		c.logger.Warnw("prediction response malformed", "status", resp.StatusCode, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	if out.ImageURLs != nil {
		out.ImageURLs.OCT = c.resolve(out.ImageURLs.OCT)
		out.ImageURLs.Fundus = c.resolve(out.ImageURLs.Fundus)
	}

	return &out, nil
}

// resolve makes an image URL from the service absolute so pages served from
// another origin can load it.
func (c *Client) resolve(ref string) string {
	if ref == "" {
		return ""
	}
	base, err := url.Parse(c.url)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

func encode(sub Submission) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	parts := []struct {
		field string
		file  *File
	}{
		{api.FieldOCT, sub.OCT},
		{api.FieldFundus, sub.Fundus},
	}
	for _, p := range parts {
		if p.file == nil {
			continue
		}
		fw, err := w.CreateFormFile(p.field, p.file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(p.file.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Message is the user facing text for an error returned by Predict.
func Message(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoImages):
		return ErrNoImages.Error()
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return ErrAnalysis.Error()
	}
}
