package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/accentor-ai/accentor/internal/observe"
	"github.com/accentor-ai/accentor/pkg/analysis"
	"github.com/accentor-ai/accentor/pkg/scoring"
	"github.com/accentor-ai/accentor/pkg/session"
)

const (
	// maxJSONBody bounds text attempt payloads.
	maxJSONBody = 1 << 20
	// maxAudioBody bounds raw audio uploads, matching the upstream
	// transcription API file limit.
	maxAudioBody = 25 << 20
)

// analyzeRequest is the JSON body of POST /v1/attempts.
type analyzeRequest struct {
	SessionID     string `json:"session_id"`
	ExpectedText  string `json:"expected_text"`
	Transcription string `json:"transcription"`
	UserLevel     int    `json:"user_level"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type attemptsResponse struct {
	Attempts []session.Attempt `json:"attempts"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	result, err := s.analyzer.Analyze(r.Context(), analysis.Request{
		ExpectedText:  req.ExpectedText,
		Transcription: req.Transcription,
		UserLevel:     req.UserLevel,
	})
	s.metrics.AnalysisDuration.Record(r.Context(), time.Since(start).Seconds())

	if err != nil {
		status, kind := classify(err)
		s.metrics.RecordAttempt(r.Context(), "text", kind)
		writeError(w, status, err.Error())
		return
	}
	s.metrics.RecordAttempt(r.Context(), "text", "ok")

	s.persist(r.Context(), req.SessionID, req.ExpectedText, result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	expectedText := r.URL.Query().Get("expected_text")
	if expectedText == "" {
		writeError(w, http.StatusBadRequest, "expected_text query parameter is required")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	userLevel, _ := strconv.Atoi(r.URL.Query().Get("user_level"))
	language := r.URL.Query().Get("language")
	if language == "" {
		language = s.defaultLanguage
	}

	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "audio body too large or unreadable")
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio body is empty")
		return
	}

	start := time.Now()
	result, err := s.analyzer.AnalyzeAudio(r.Context(), analysis.AudioRequest{
		Audio:        audio,
		ExpectedText: expectedText,
		UserLevel:    userLevel,
		Language:     language,
		MIMEType:     r.Header.Get("Content-Type"),
	})
	s.metrics.AnalysisDuration.Record(r.Context(), time.Since(start).Seconds())

	if err != nil {
		status, kind := classify(err)
		s.metrics.RecordAttempt(r.Context(), "audio", kind)
		writeError(w, status, err.Error())
		return
	}
	s.metrics.RecordAttempt(r.Context(), "audio", "ok")

	s.persist(r.Context(), sessionID, expectedText, result)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	if s.attempts == nil {
		writeError(w, http.StatusNotImplemented, "attempt storage is not configured")
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	attempts, err := s.attempts.ListAttempts(r.Context(), sessionID, limit)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		observe.Logger(r.Context()).Error("list attempts failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list attempts")
		return
	}
	if attempts == nil {
		attempts = []session.Attempt{}
	}

	writeJSON(w, http.StatusOK, attemptsResponse{Attempts: attempts})
}

// persist archives the result in every configured sink. Storage failures are
// logged and never fail the attempt that produced the result.
func (s *Server) persist(ctx context.Context, sessionID, expectedText string, result *scoring.VoiceAnalysisResult) {
	log := observe.Logger(ctx)

	if s.attempts != nil && sessionID != "" {
		err := s.attempts.SaveAttempt(ctx, session.Attempt{
			SessionID:    sessionID,
			ExpectedText: expectedText,
			Result:       *result,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			log.Error("save attempt failed", "session_id", sessionID, "err", err)
		}
	}

	if s.conversations != nil && sessionID != "" {
		now := time.Now().UTC()
		turns := []session.Turn{
			{Role: "learner", Content: result.Transcription, CreatedAt: now},
			{Role: "tutor", Content: result.Feedback.OverallAssessment, CreatedAt: now},
		}
		for _, turn := range turns {
			if err := s.conversations.Append(ctx, sessionID, turn); err != nil {
				log.Warn("append conversation turn failed", "session_id", sessionID, "err", err)
				break
			}
		}
	}

	if s.export != nil {
		if err := s.export.Log(sessionID, expectedText, result); err != nil {
			log.Warn("export attempt failed", "err", err)
		}
	}
}

// classify maps pipeline errors to HTTP status codes and metric status kinds.
func classify(err error) (int, string) {
	var timeoutErr *analysis.TranscriptionTimeoutError
	var failedErr *analysis.TranscriptionFailedError
	var analysisErr *analysis.VoiceAnalysisError

	switch {
	case errors.Is(err, scoring.ErrEmptyInput):
		return http.StatusBadRequest, "empty_input"
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, "transcription_timeout"
	case errors.As(err, &failedErr):
		return http.StatusBadGateway, "transcription_failed"
	case errors.As(err, &analysisErr):
		return http.StatusInternalServerError, "analysis_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
