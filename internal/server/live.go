package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"

	"github.com/coder/websocket"

	"github.com/accentor-ai/accentor/internal/observe"
	"github.com/accentor-ai/accentor/pkg/analysis"
	"github.com/accentor-ai/accentor/pkg/scoring"
)

// liveRequest is one client frame on the live-practice socket. Clients send a
// frame per transcription update; Final marks the last frame of an attempt.
type liveRequest struct {
	Seq           int    `json:"seq"`
	ExpectedText  string `json:"expected_text"`
	Transcription string `json:"transcription"`
	UserLevel     int    `json:"user_level"`
	Final         bool   `json:"final"`
}

// liveResponse is the server frame answering one [liveRequest]. Interim
// frames carry word scores only; the frame answering a Final request carries
// the complete analysis result.
type liveResponse struct {
	Seq                int                          `json:"seq"`
	WordScores         []scoring.WordScore          `json:"word_scores,omitempty"`
	PronunciationScore int                          `json:"pronunciation_score"`
	CompletenessScore  int                          `json:"completeness_score"`
	Result             *scoring.VoiceAnalysisResult `json:"result,omitempty"`
	Error              string                       `json:"error,omitempty"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	log := observe.Logger(ctx)
	sessionID := r.URL.Query().Get("session_id")

	s.metrics.ActiveLiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveLiveSessions.Add(context.WithoutCancel(ctx), -1)

	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				log.Debug("live session ended", "err", err)
			}
			return
		}
		if typ != websocket.MessageText {
			if err := s.writeLive(ctx, c, liveResponse{Error: "only text frames are supported"}); err != nil {
				return
			}
			continue
		}

		var req liveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := s.writeLive(ctx, c, liveResponse{Error: "invalid frame: " + err.Error()}); err != nil {
				return
			}
			continue
		}

		if err := s.writeLive(ctx, c, s.scoreLive(ctx, sessionID, req)); err != nil {
			return
		}
	}
}

// scoreLive answers one live frame. Interim frames take the cheap word-score
// path; the final frame runs the full pipeline and is persisted like a
// regular attempt.
func (s *Server) scoreLive(ctx context.Context, sessionID string, req liveRequest) liveResponse {
	if len(scoring.Tokenize(req.ExpectedText)) == 0 {
		return liveResponse{Seq: req.Seq, Error: scoring.ErrEmptyInput.Error()}
	}

	if req.Final {
		result, err := s.analyzer.Analyze(ctx, analysis.Request{
			ExpectedText:  req.ExpectedText,
			Transcription: req.Transcription,
			UserLevel:     req.UserLevel,
		})
		if err != nil {
			s.metrics.RecordAttempt(ctx, "live", "analysis_failed")
			return liveResponse{Seq: req.Seq, Error: err.Error()}
		}
		s.metrics.RecordAttempt(ctx, "live", "ok")
		s.persist(ctx, sessionID, req.ExpectedText, result)
		return liveResponse{
			Seq:                req.Seq,
			WordScores:         result.WordScores,
			PronunciationScore: result.PronunciationScore,
			CompletenessScore:  result.CompletenessScore,
			Result:             result,
		}
	}

	wordScores := s.liveScorer.ScoreWords(req.ExpectedText, req.Transcription, nil)
	return liveResponse{
		Seq:                req.Seq,
		WordScores:         wordScores,
		PronunciationScore: meanScore(wordScores),
		CompletenessScore:  completeness(wordScores),
	}
}

func (s *Server) writeLive(ctx context.Context, c *websocket.Conn, resp liveResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.Write(ctx, websocket.MessageText, data)
}

func meanScore(scores []scoring.WordScore) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, ws := range scores {
		sum += ws.Score
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

func completeness(scores []scoring.WordScore) int {
	if len(scores) == 0 {
		return 0
	}
	correct := 0
	for _, ws := range scores {
		if ws.IsCorrect {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(scores))))
}
