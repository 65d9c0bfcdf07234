package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/pipeline"
	"github.com/Sumatoshi-tech/clausefang/pkg/render"
	"github.com/Sumatoshi-tech/clausefang/pkg/review"
	"github.com/Sumatoshi-tech/clausefang/pkg/store"
	"github.com/Sumatoshi-tech/clausefang/pkg/textutil"
)

// Error codes of the JSON error body.
const (
	codeInvalidRequest = "invalid_request"
	codeUnsupported    = "unsupported_media_type"
	codeTooLarge       = "payload_too_large"
	codeNotFound       = "not_found"
	codeNotReady       = "review_not_complete"
	codeUnavailable    = "unavailable"
	codeInternal       = "internal_error"
)

const (
	// multipartMemory is held in memory before ParseMultipartForm spills to disk.
	multipartMemory = 1 << 20
	// maxTriageBytes caps a triage request body.
	maxTriageBytes = 64 << 10
)

// SubmitRequest is the JSON body of POST /v1/reviews.
type SubmitRequest struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	ContractType string `json:"contract_type,omitempty"`
}

// SubmitResponse answers an accepted submission.
type SubmitResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleSubmit(rw http.ResponseWriter, hr *http.Request) {
	hr.Body = http.MaxBytesReader(rw, hr.Body, s.cfg.MaxUploadBytes)

	doc, err := s.readDocument(hr)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	id, err := s.reviewer.Submit(hr.Context(), doc)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	rw.Header().Set("Location", "/v1/reviews/"+id)
	s.writeJSON(rw, hr, http.StatusAccepted, SubmitResponse{ID: id})
}

// readDocument accepts a JSON body or a multipart upload in the "file" field.
func (s *Server) readDocument(hr *http.Request) (review.Document, error) {
	mediaType, _, _ := mime.ParseMediaType(hr.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		return s.readUpload(hr)
	}

	var req SubmitRequest

	decodeErr := json.NewDecoder(hr.Body).Decode(&req)
	if decodeErr != nil {
		return review.Document{}, fmt.Errorf("%w: %w", errBadRequest, decodeErr)
	}

	text, err := textutil.Decode("", []byte(req.Text))
	if err != nil {
		return review.Document{}, err
	}

	return review.Document{
		Title:        strings.TrimSpace(req.Title),
		Text:         text,
		ContractType: strings.TrimSpace(req.ContractType),
	}, nil
}

func (s *Server) readUpload(hr *http.Request) (review.Document, error) {
	parseErr := hr.ParseMultipartForm(multipartMemory)
	if parseErr != nil {
		return review.Document{}, fmt.Errorf("%w: %w", errBadRequest, parseErr)
	}

	file, header, err := hr.FormFile("file")
	if err != nil {
		return review.Document{}, fmt.Errorf("%w: file field: %w", errBadRequest, err)
	}
	defer file.Close()

	text, err := textutil.ReadDocument(header.Filename, file, s.cfg.MaxUploadBytes)
	if err != nil {
		return review.Document{}, err
	}

	title := strings.TrimSpace(hr.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	return review.Document{
		Title:        title,
		Text:         text,
		ContractType: strings.TrimSpace(hr.FormValue("contract_type")),
	}, nil
}

func (s *Server) handleGet(rw http.ResponseWriter, hr *http.Request) {
	rec, err := s.reviewer.Get(hr.PathValue("id"))
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	rec.Text = ""

	s.writeJSON(rw, hr, http.StatusOK, rec)
}

func (s *Server) handleList(rw http.ResponseWriter, hr *http.Request) {
	records, err := s.reviewer.List()
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	if records == nil {
		records = []store.Record{}
	}

	s.writeJSON(rw, hr, http.StatusOK, records)
}

func (s *Server) handleReport(rw http.ResponseWriter, hr *http.Request) {
	rec, err := s.reviewer.Get(hr.PathValue("id"))
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	if rec.Status != store.StatusCompleted {
		s.writeJSON(rw, hr, http.StatusConflict, ErrorResponse{
			Code:    codeNotReady,
			Message: fmt.Sprintf("review is %s (%d%%)", rec.Status, rec.Progress),
		})

		return
	}

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")

	err = render.HTMLReport(rw, rec)
	if err != nil {
		s.logger.ErrorContext(hr.Context(), "render report", "review.id", rec.ID, "error", err)
	}
}

func (s *Server) handleTriage(rw http.ResponseWriter, hr *http.Request) {
	number, err := strconv.Atoi(hr.PathValue("number"))
	if err != nil {
		s.writeError(rw, hr, fmt.Errorf("%w: finding number %q", errBadRequest, hr.PathValue("number")))

		return
	}

	hr.Body = http.MaxBytesReader(rw, hr.Body, maxTriageBytes)

	var triage finding.Triage

	decodeErr := json.NewDecoder(hr.Body).Decode(&triage)
	if decodeErr != nil {
		s.writeError(rw, hr, fmt.Errorf("%w: %w", errBadRequest, decodeErr))

		return
	}

	updated, err := s.reviewer.Triage(hr.PathValue("id"), number, triage)
	if err != nil {
		s.writeError(rw, hr, err)

		return
	}

	s.writeJSON(rw, hr, http.StatusOK, updated)
}

func (s *Server) handlePlaybook(rw http.ResponseWriter, hr *http.Request) {
	s.writeJSON(rw, hr, http.StatusOK, s.reviewer.Playbook())
}

var errBadRequest = errors.New("invalid request body")

// statusOf maps domain errors to a status code and error code.
func statusOf(err error) (int, string) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytes), errors.Is(err, textutil.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, codeTooLarge
	case errors.Is(err, textutil.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, codeUnsupported
	case errors.Is(err, errBadRequest),
		errors.Is(err, pipeline.ErrEmptyDocument),
		errors.Is(err, textutil.ErrBinary),
		errors.Is(err, textutil.ErrInvalidUTF8),
		errors.Is(err, finding.ErrEmptyTriage),
		errors.Is(err, finding.ErrInvalidTriageStatus):
		return http.StatusBadRequest, codeInvalidRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrFindingNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, review.ErrNotComplete):
		return http.StatusConflict, codeNotReady
	case errors.Is(err, review.ErrShuttingDown), errors.Is(err, store.ErrClosed):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func (s *Server) writeError(rw http.ResponseWriter, hr *http.Request, err error) {
	status, code := statusOf(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(hr.Context(), "request failed", "path", hr.URL.Path, "error", err)

		message = http.StatusText(status)
	}

	s.writeJSON(rw, hr, status, ErrorResponse{Code: code, Message: message})
}

func (s *Server) writeJSON(rw http.ResponseWriter, hr *http.Request, status int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		s.logger.ErrorContext(hr.Context(), "failed to encode JSON response", "error", encodeErr)
	}
}
