package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/ragfuse/internal/config"
	"github.com/hyperjump/ragfuse/internal/generation"
	"github.com/hyperjump/ragfuse/internal/models"
	"github.com/hyperjump/ragfuse/internal/pipeline"
	"go.uber.org/zap"
)

// UploadField is the multipart form field carrying uploaded files.
const UploadField = "files"

const multipartMemory = 32 << 20

type errorResponse struct {
	Error  string         `json:"error"`
	Code   string         `json:"code,omitempty"`
	Answer *models.Answer `json:"answer,omitempty"`
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "expected a multipart form with field \""+UploadField+"\"")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File[UploadField]
	if len(headers) == 0 {
		s.respondError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	inputs := make([]*models.DocumentInput, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "cannot read "+fh.Filename)
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "cannot read "+fh.Filename)
			return
		}
		inputs = append(inputs, &models.DocumentInput{Filename: filepath.Base(fh.Filename), Content: content})
	}
	s.logger.Debug("ingest request", zap.Int("files", len(inputs)))

	report, err := s.pipeline.Ingest(r.Context(), inputs)
	if err != nil {
		s.respondDomainError(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	s.logger.Debug("remove document request", zap.String("filename", filename))
	if err := s.pipeline.Remove(r.Context(), filename); err != nil {
		s.respondDomainError(w, err, nil)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"filename": filename, "status": "removed"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question))
	answer, err := s.pipeline.Ask(r.Context(), req.Question)
	if err != nil {
		s.respondDomainError(w, err, answer)
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.pipeline.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.watchConfig == nil {
		return
	}
	s.watchConfigMu.Lock()
	defer s.watchConfigMu.Unlock()
	s.watchConfig.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.watchConfig); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch models.ErrorCode(err) {
	case models.CodeInvalidInput, models.CodeConfig:
		return http.StatusBadRequest
	case models.CodeNoCorpus:
		return http.StatusConflict
	case models.CodeEmbedding:
		return http.StatusBadGateway
	case models.CodeGeneration:
		if generation.IsRateLimited(err) {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) respondDomainError(w http.ResponseWriter, err error, answer *models.Answer) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondJSON(w, status, errorResponse{Error: err.Error(), Code: models.ErrorCode(err), Answer: answer})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
