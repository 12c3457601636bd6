package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joescharf/reviewlens/internal/ledger"
	"github.com/joescharf/reviewlens/internal/models"
	"github.com/joescharf/reviewlens/internal/report"
	"github.com/joescharf/reviewlens/internal/textclean"
)

// maxBodyBytes caps request bodies; reviews are short free text.
const maxBodyBytes = 1 << 20

// Server provides the REST API handlers.
type Server struct {
	sessions  *ledger.Sessions
	extractor ledger.Extractor
	normalize bool
	logger    *slog.Logger
}

// NewServer creates a new API server over a session registry. The extractor
// serves the stateless analyze endpoint.
func NewServer(sessions *ledger.Sessions, extractor ledger.Extractor, normalize bool) *Server {
	return &Server{
		sessions:  sessions,
		extractor: extractor,
		normalize: normalize,
		logger:    slog.Default(),
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/analyze", s.analyze)

	mux.HandleFunc("POST /api/v1/sessions", s.createSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.endSession)

	mux.HandleFunc("GET /api/v1/sessions/{id}/reviews", s.listReviews)
	mux.HandleFunc("POST /api/v1/sessions/{id}/reviews", s.addReview)
	mux.HandleFunc("GET /api/v1/sessions/{id}/summary", s.summary)
	mux.HandleFunc("GET /api/v1/sessions/{id}/export", s.export)
	mux.HandleFunc("GET /api/v1/sessions/{id}/export.csv", s.export)

	return s.logRequests(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("api request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ledgerFor resolves the session in the path, writing a 404 if it is unknown.
func (s *Server) ledgerFor(w http.ResponseWriter, r *http.Request) (*ledger.Ledger, bool) {
	l, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return l, true
}

type reviewRequest struct {
	Text   string `json:"text"`
	Rating *int   `json:"rating"`
}

func decodeReview(w http.ResponseWriter, r *http.Request) (reviewRequest, bool) {
	var req reviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	return req, true
}

// --- Analyze ---

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeReview(w, r)
	if !ok {
		return
	}
	text := req.Text
	if s.normalize {
		text = textclean.Normalize(text)
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, ledger.ErrEmptyReview.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.extractor.Extract(r.Context(), text))
}

// --- Sessions ---

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.sessions.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(r.PathValue("id")); err != nil {
		if errors.Is(err, ledger.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Reviews ---

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledgerFor(w, r)
	if !ok {
		return
	}
	reviews, err := l.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) addReview(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledgerFor(w, r)
	if !ok {
		return
	}
	req, ok := decodeReview(w, r)
	if !ok {
		return
	}

	rating := models.MaxRating
	if req.Rating != nil {
		rating = *req.Rating
	}

	sub, err := l.Add(r.Context(), req.Text, rating)
	if err != nil {
		if errors.Is(err, ledger.ErrEmptyReview) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type summaryResponse struct {
	report.Summary
	PositiveShare float64 `json:"positive_share"`
	NegativeShare float64 `json:"negative_share"`
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	l, ok := s.ledgerFor(w, r)
	if !ok {
		return
	}
	sum, err := l.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pos, neg := sum.Shares()
	writeJSON(w, http.StatusOK, summaryResponse{Summary: sum, PositiveShare: pos, NegativeShare: neg})
}

var exportTypes = map[string]struct {
	contentType string
	ext         string
}{
	report.FormatCSV:      {"text/csv; charset=utf-8", "csv"},
	report.FormatJSON:     {"application/json", "json"},
	report.FormatMarkdown: {"text/markdown; charset=utf-8", "md"},
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" || strings.HasSuffix(r.URL.Path, ".csv") {
		format = report.FormatCSV
	}
	et, known := exportTypes[format]
	if !known {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format: %s (use: csv, json, markdown)", format))
		return
	}

	l, ok := s.ledgerFor(w, r)
	if !ok {
		return
	}
	reviews, err := l.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", et.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reviews.%s"`, et.ext))
	if err := report.Write(w, format, reviews); err != nil {
		s.logger.Error("export failed", "error", err)
	}
}
