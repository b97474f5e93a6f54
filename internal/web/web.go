// Package web serves the upload form and renders prediction results as HTML.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Brownie44l1/retinascan/internal/api"
	"github.com/Brownie44l1/retinascan/internal/client"
	"github.com/Brownie44l1/retinascan/internal/form"
)

//go:embed templates/*
var templates embed.FS

type PageData struct {
	Page          form.State
	NoticeSeconds int
}

type Server struct {
	predictor form.Predictor
	tmpl      *template.Template
	maxBytes  int64
	logger    *zap.SugaredLogger
}

func New(predictor form.Predictor, maxBytes int64, logger *zap.SugaredLogger) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"safeURL": safeURL,
	}).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		predictor: predictor,
		tmpl:      tmpl,
		maxBytes:  maxBytes,
		logger:    logger,
	}, nil
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/analyze", s.analyze).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"healthy"}`)
	}).Methods(http.MethodGet)
	return r
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, form.State{})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	page := form.NewPage(s.predictor, nil)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		s.logger.Warnw("form parse failed", "error", err)
		page.ShowError(client.ErrAnalysis.Error())
		s.render(w, http.StatusBadRequest, page.State())
		return
	}

	var sub client.Submission
	sub.OCT = formFile(r, api.FieldOCT)
	sub.Fundus = formFile(r, api.FieldFundus)

	page.Preview(form.SlotOCT, sub.OCT)
	page.Preview(form.SlotFundus, sub.Fundus)

	status := http.StatusOK
	if err := page.Submit(r.Context(), sub); err != nil {
		var apiErr *client.APIError
		switch {
		case errors.Is(err, client.ErrNoImages):
			status = http.StatusBadRequest
		case errors.As(err, &apiErr):
			status = http.StatusUnprocessableEntity
		default:
			status = http.StatusBadGateway
			s.logger.Errorw("analysis failed", "error", err)
		}
	}

	s.render(w, status, page.State())
}

// formFile returns nil when the field is absent, empty or unreadable.
func formFile(r *http.Request, field string) *client.File {
	f, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	defer f.Close()
	if header.Filename == "" {
		return nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}
	return &client.File{Name: header.Filename, Data: data}
}

func (s *Server) render(w http.ResponseWriter, status int, state form.State) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := PageData{
		Page:          state,
		NoticeSeconds: int(form.NoticeTTL / time.Second),
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Errorw("template render failed", "error", err)
	}
}

// safeURL trusts inline image previews and plain links; anything else goes
// through the normal URL sanitizer.
func safeURL(u string) interface{} {
	if strings.HasPrefix(u, "data:image/") {
		return template.URL(u)
	}
	return u
}
