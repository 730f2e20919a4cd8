package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type indexRequest struct {
	Directory string `json:"directory"`
}

type statusResponse struct {
	Ready         bool `json:"ready"`
	DocumentCount int  `json:"document_count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	start := time.Now()
	ans := s.pipeline.Query(r.Context(), req.Question, req.K)
	s.logger.Info("question answered",
		zap.String("question", req.Question),
		zap.Float64("confidence", ans.Confidence),
		zap.Duration("took", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Directory == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "directory is required"})
		return
	}

	if err := s.pipeline.BuildIndex(r.Context(), req.Directory); err != nil {
		s.logger.Error("index build failed", zap.String("directory", req.Directory), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Ready:         s.pipeline.CollectionExists(),
		DocumentCount: s.pipeline.DocumentCount(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Ready:         s.pipeline.CollectionExists(),
		DocumentCount: s.pipeline.DocumentCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
