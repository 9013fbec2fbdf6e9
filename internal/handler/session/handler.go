package session

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/handler/apierror"
	consultService "github.com/zhouzirui/consultant/internal/service/consult"
	sessionService "github.com/zhouzirui/consultant/internal/service/session"
	"github.com/zhouzirui/consultant/pkg/utils"
)

// Handler 会话管理的HTTP处理器
type Handler struct {
	engine    *consultService.Engine
	exportDir string
	logger    *zap.Logger
}

// New 创建会话处理器; 导出文件写入exportDir
func New(engine *consultService.Engine, exportDir string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:    engine,
		exportDir: exportDir,
		logger:    logger,
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Get("/", h.handleListSessions)
		r.Get("/current", h.handleCurrentSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/select", h.handleSelectSession)
			r.Get("/messages", h.handleListMessages)
			r.Delete("/messages", h.handleResetSession)
			r.Post("/export", h.handleExportSession)
		})
	})
}

// handleCreateSession 创建会话并设为当前会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info := h.engine.CreateSession(strings.TrimSpace(payload.Name))
	utils.RespondJSON(w, http.StatusCreated, info)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.engine.ListSessions())
}

func (h *Handler) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	info, ok := h.engine.CurrentSession()
	if !ok {
		apierror.Respond(w, sessionService.ErrNoActiveSession)
		return
	}
	utils.RespondJSON(w, http.StatusOK, info)
}

func (h *Handler) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.engine.SelectSession(sessionID); err != nil {
		apierror.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"current": sessionID})
}

// handleListMessages 返回会话的完整历史
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	history, err := h.engine.History(chi.URLParam(r, "sessionID"))
	if err != nil {
		apierror.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, history)
}

// handleResetSession 清空会话历史, 保留会话元数据
func (h *Handler) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(chi.URLParam(r, "sessionID")); err != nil {
		apierror.Respond(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportSession 将会话写入导出目录
func (h *Handler) handleExportSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Filename string `json:"filename"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name, err := exportName(sessionID, payload.Filename)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	path := filepath.Join(h.exportDir, name)
	if err := h.engine.ExportSession(sessionID, path); err != nil {
		h.logger.Warn("export failed", zap.String("session", sessionID), zap.Error(err))
		apierror.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"path": path})
}

// exportName keeps client-chosen names inside the export directory.
func exportName(sessionID, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return sessionService.DefaultExportName(sessionID), nil
	}
	if requested != filepath.Base(requested) || requested == "." || requested == ".." {
		return "", fmt.Errorf("invalid filename %q", requested)
	}
	return requested, nil
}
