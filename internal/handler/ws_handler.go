package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/response"
	"github.com/alphaexam/alphaexam-backend/internal/service"
	ws "github.com/alphaexam/alphaexam-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the attempt stream.
type WSHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/exam-attempts/:attempt_id/stream
// Upgrades to WebSocket for autosave, clock sync and submission.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	attemptID, ok := paramUUID(c, "attempt_id")
	if !ok {
		return
	}

	// Reject foreign or finished attempts before upgrading.
	state, err := h.attemptService.State(c.Request.Context(), ident, attemptID)
	if err != nil {
		fail(c, err)
		return
	}
	if state.Status != model.AttemptStatusInProgress {
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("user_id", ident.UserID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()
	wsLog.Info().Msg("Client connected")

	s := &attemptStream{h: h, conn: conn, ident: ident, attemptID: attemptID, log: wsLog}
	s.writeSync(state)

	for {
		raw, err := ws.ReadMessage(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			_ = ws.WriteError(conn, string(response.ErrInvalidPayload), "malformed message")
			continue
		}

		switch env.Action {
		case ws.ActionAutosave:
			s.autosave(raw)
		case ws.ActionSync:
			s.sync()
		case ws.ActionSubmit:
			if s.submit(raw) {
				return
			}
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(env.Action))
		}
	}
}

// attemptStream is the per-connection state of AttemptStream.
type attemptStream struct {
	h         *WSHandler
	conn      *websocket.Conn
	ident     service.Identity
	attemptID uuid.UUID
	log       zerolog.Logger
}

func (s *attemptStream) writeErr(err error) {
	_, code := classify(err)
	_ = ws.WriteError(s.conn, string(code), response.GetMessage(code))
}

func (s *attemptStream) writeSync(state *model.AttemptState) {
	_ = ws.WriteTyped(s.conn, ws.SyncResponse{
		Event:            ws.EventSync,
		Status:           state.Status,
		RemainingSeconds: state.RemainingSeconds,
		Answers:          state.Answers,
	})
}

func (s *attemptStream) autosave(raw []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.QuestionID == "" || msg.Option == "" {
		_ = ws.WriteError(s.conn, string(response.ErrInvalidPayload), "question_id and option are required")
		return
	}

	req := &model.SaveAnswerRequest{QuestionID: msg.QuestionID, Option: msg.Option}
	if err := s.h.attemptService.SaveAnswer(context.Background(), s.ident, s.attemptID, req); err != nil {
		s.log.Debug().Err(err).Str("question_id", msg.QuestionID).Msg("Autosave rejected")
		s.writeErr(err)
		return
	}
	_ = ws.WriteTyped(s.conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

func (s *attemptStream) sync() {
	state, err := s.h.attemptService.State(context.Background(), s.ident, s.attemptID)
	if err != nil {
		s.writeErr(err)
		return
	}
	s.writeSync(state)
}

// submit finalises the attempt and reports whether the stream should end.
func (s *attemptStream) submit(raw []byte) bool {
	var msg ws.SubmitRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		_ = ws.WriteError(s.conn, string(response.ErrInvalidPayload), "malformed submit")
		return false
	}

	ctx := context.Background()
	answers := msg.Answers
	if answers == nil {
		state, err := s.h.attemptService.State(ctx, s.ident, s.attemptID)
		if err != nil {
			s.writeErr(err)
			return false
		}
		answers = state.Answers
	}

	res, err := s.h.attemptService.SubmitAttempt(ctx, s.ident, s.attemptID, &model.SubmitRequest{
		Answers:   answers,
		TimeSpent: msg.TimeSpent,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Submit failed")
		s.writeErr(err)
		return false
	}

	s.log.Info().Msg("Attempt submitted over stream")
	_ = ws.WriteTyped(s.conn, ws.SubmittedResponse{Event: ws.EventSubmitted, AttemptID: res.AttemptID.String()})
	return true
}
