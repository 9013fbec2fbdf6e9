package consult

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/analysis/brief"
	"github.com/zhouzirui/consultant/internal/handler/apierror"
	"github.com/zhouzirui/consultant/internal/model/mode"
	consultService "github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/pkg/utils"
)

// Handler 咨询对话的HTTP处理器
type Handler struct {
	engine *consultService.Engine
	logger *zap.Logger
}

// New 创建对话处理器
func New(engine *consultService.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes 注册对话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/turns", h.handleTurn)
		r.Post("/retry", h.handleRetry)
		r.Post("/workflows/{workflow}", h.handleWorkflow)
	})
}

type turnRequest struct {
	Mode        string   `json:"mode"`
	Message     string   `json:"message"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty"`
}

type replyResponse struct {
	SessionID string    `json:"sessionId"`
	Mode      mode.Mode `json:"mode"`
	Reply     string    `json:"reply"`
}

func (req turnRequest) options() []consultService.TurnOption {
	var opts []consultService.TurnOption
	if req.Temperature != nil {
		opts = append(opts, consultService.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, consultService.WithMaxOutputTokens(*req.MaxTokens))
	}
	return opts
}

// parseMode defaults an omitted mode to chat.
func parseMode(raw string) (mode.Mode, error) {
	if raw == "" {
		return mode.Chat, nil
	}
	return mode.ParseMode(raw)
}

// handleTurn 执行一轮对话
func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload turnRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := parseMode(payload.Mode)
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	reply, err := h.engine.Turn(r.Context(), sessionID, m, payload.Message, payload.options()...)
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, replyResponse{SessionID: sessionID, Mode: m, Reply: reply})
}

// handleRetry 重发最后一条未回复的用户消息
func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload turnRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := parseMode(payload.Mode)
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	reply, err := h.engine.RetryLast(r.Context(), sessionID, m, payload.options()...)
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, replyResponse{SessionID: sessionID, Mode: m, Reply: reply})
}

// handleWorkflow 以结构化字段运行预设工作流
func (h *Handler) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	workflow, err := consultService.ParseWorkflow(chi.URLParam(r, "workflow"))
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	raw := map[string]string{}
	if err := utils.DecodeJSON(r, &raw); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		fields[brief.Canonical(key)] = value
	}
	if missing := brief.Missing(fields, workflow.Fields()); len(missing) > 0 {
		utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("missing fields: %s", strings.Join(missing, ", ")))
		return
	}

	m, err := workflow.Mode()
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	reply, err := h.engine.RunWorkflow(r.Context(), sessionID, workflow, fields)
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	h.logger.Debug("workflow completed", zap.String("session", sessionID), zap.String("workflow", string(workflow)))
	utils.RespondJSON(w, http.StatusOK, replyResponse{SessionID: sessionID, Mode: m, Reply: reply})
}
