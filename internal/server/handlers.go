package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/nexus-cli/internal/model"
	"github.com/sells-group/nexus-cli/internal/pipeline"
)

// uploadField is the multipart field carrying the data file.
const uploadField = "file"

// errNoUpload is returned when a request carries no file.
var errNoUpload = errors.New("multipart field \"file\" is required")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, newPage())
}

func (s *Server) handleAnalyzeHTML(w http.ResponseWriter, r *http.Request) {
	page := newPage()
	name, data, err := s.readUpload(w, r)
	if err != nil {
		page.Error = err.Error()
		s.renderPage(w, statusFor(err), page)
		return
	}

	// The mode arrives with the upload, so it can only be checked once the
	// form is parsed, but it must be checked before scoring.
	mode, err := pipeline.ParseMode(r.FormValue("mode"))
	if err != nil {
		page.Error = err.Error()
		s.renderPage(w, http.StatusBadRequest, page)
		return
	}

	res, err := s.pipe.Run(r.Context(), name, data)
	if err != nil {
		page.Error = err.Error()
		s.renderPage(w, statusFor(err), page)
		return
	}

	page.Mode = mode
	page.Result = s.resultView(res, mode, r.FormValue("preview") != "")
	s.renderPage(w, http.StatusOK, page)
}

func (s *Server) handleAnalyzeJSON(w http.ResponseWriter, r *http.Request) {
	limit := s.report.HighRiskLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	res, err := s.analyze(w, r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res.Digest(limit))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.analyze(w, r)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}

	base := strings.TrimSuffix(filepath.Base(res.Source), filepath.Ext(res.Source))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_scored.csv"))
	w.Header().Set("X-Run-ID", res.RunID)
	w.WriteHeader(http.StatusOK)
	if err := res.ExportCSV(w); err != nil {
		zap.L().Error("export: write response", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

// analyze reads the uploaded file from a multipart request and runs it.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*pipeline.Result, error) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		return nil, err
	}
	return s.pipe.Run(r.Context(), name, data)
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	if r.ContentLength > limit {
		return "", nil, &http.MaxBytesError{Limit: limit}
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, err
		}
		return "", nil, errNoUpload
	}

	f, hdr, err := r.FormFile(uploadField)
	if err != nil {
		return "", nil, errNoUpload
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, err
	}
	return filepath.Base(hdr.Filename), data, nil
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errNoUpload):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case model.IsFormatError(err):
		return http.StatusUnsupportedMediaType
	case model.IsInsufficientFeatures(err), model.IsInsufficientData(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write json response", zap.Error(err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
