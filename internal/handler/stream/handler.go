package stream

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/handler/apierror"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/ai"
	"github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/pkg/utils"
)

// Handler delivers a turn's reply via Server-Sent Events
type Handler struct {
	engine *consult.Engine
	logger *zap.Logger
}

// New creates a new stream handler
func New(engine *consult.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes mounts GET /stream/{sessionID}?mode=&message=
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	query := r.URL.Query()

	userMessage := query.Get("message")
	if userMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	m := mode.Chat
	if raw := query.Get("mode"); raw != "" {
		parsed, err := mode.ParseMode(raw)
		if err != nil {
			apierror.Respond(w, err)
			return
		}
		m = parsed
	}

	// Unknown sessions fail as plain JSON before the event stream opens.
	if _, err := h.engine.History(sessionID); err != nil {
		apierror.Respond(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	utils.SetupSSEHeaders(w)

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "start",
		SessionID: sessionID,
		Mode:      string(m),
	})

	reply, err := h.engine.Turn(r.Context(), sessionID, m, userMessage)
	if err != nil {
		h.logger.Warn("stream turn failed", zap.String("session", sessionID), zap.Error(err))
		h.sendSSEError(w, flusher, sessionID, err)
		return
	}

	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: sessionID,
		Content:   reply,
	})

	// Send completion signal
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})
}

// sendSSEError sends an error via Server-Sent Events
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, sessionID string, err error) {
	resp := StreamResponse{
		Event:     "error",
		SessionID: sessionID,
		Error:     err.Error(),
	}
	var failure *ai.Failure
	if errors.As(err, &failure) {
		resp.Kind = string(failure.Kind)
	}
	utils.SendSSEChunk(w, flusher, resp)
}
