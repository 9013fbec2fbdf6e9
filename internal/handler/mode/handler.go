package mode

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/pkg/utils"
)

// Handler 咨询模式的HTTP处理器
type Handler struct {
	templates mode.Registry
}

// New 创建模式处理器
func New(templates mode.Registry) *Handler {
	return &Handler{
		templates: templates,
	}
}

// RegisterRoutes 注册模式相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/modes", h.handleListModes)
}

type modeView struct {
	Mode  mode.Mode `json:"mode"`
	Title string    `json:"title"`
}

// handleListModes 列出所有模式
func (h *Handler) handleListModes(w http.ResponseWriter, r *http.Request) {
	templates := h.templates.List()
	views := make([]modeView, 0, len(templates))
	for _, tpl := range templates {
		views = append(views, modeView{Mode: tpl.Mode, Title: tpl.Title})
	}
	utils.RespondJSON(w, http.StatusOK, views)
}
