package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/handler/apierror"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/ai"
	"github.com/zhouzirui/consultant/internal/service/consult"
)

const (
	defaultReadTimeout = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket对话处理器
type Handler struct {
	engine      *consult.Engine
	logger      *zap.Logger
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithReadTimeout sets how long an idle connection waits for the next
// message or pong. It does not bound a turn in progress.
func WithReadTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.readTimeout = d
		}
	}
}

// New 创建WebSocket处理器
func New(engine *consult.Engine, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		engine:      engine,
		logger:      logger,
		readTimeout: defaultReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// Inbound message types.
const (
	TypeTurn  = "turn"
	TypeRetry = "retry"
	TypeReset = "reset"
)

// Outbound message types; TypeReset is echoed on success.
const (
	TypeConnected = "connected"
	TypeReply     = "reply"
	TypeError     = "error"
)

type inboundMessage struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接; 同一连接上的消息按顺序执行
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.engine.History(sessionID); err != nil {
		apierror.Respond(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connected", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, outgoingMessage{Type: TypeConnected, SessionID: sessionID})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("session", sessionID), zap.Error(err))
			}
			return
		}
		// 处理期间不读取, 模型调用可能超过读超时
		conn.SetReadDeadline(time.Time{})
		h.send(conn, h.dispatch(ctx, sessionID, msg))
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

// dispatch runs one inbound message against the engine and builds the reply.
func (h *Handler) dispatch(ctx context.Context, sessionID string, msg inboundMessage) outgoingMessage {
	if msg.Type == TypeReset {
		if err := h.engine.Reset(sessionID); err != nil {
			return errorMessage(sessionID, err)
		}
		return outgoingMessage{Type: TypeReset, SessionID: sessionID}
	}

	m := mode.Chat
	if msg.Mode != "" {
		parsed, err := mode.ParseMode(msg.Mode)
		if err != nil {
			return errorMessage(sessionID, err)
		}
		m = parsed
	}

	var (
		reply string
		err   error
	)
	switch msg.Type {
	case TypeTurn:
		reply, err = h.engine.Turn(ctx, sessionID, m, msg.Text)
	case TypeRetry:
		reply, err = h.engine.RetryLast(ctx, sessionID, m)
	default:
		return outgoingMessage{Type: TypeError, SessionID: sessionID, Error: "unsupported message type: " + msg.Type}
	}
	if err != nil {
		return errorMessage(sessionID, err)
	}
	return outgoingMessage{Type: TypeReply, SessionID: sessionID, Mode: string(m), Content: reply}
}

func errorMessage(sessionID string, err error) outgoingMessage {
	out := outgoingMessage{Type: TypeError, SessionID: sessionID, Error: err.Error()}
	var failure *ai.Failure
	if errors.As(err, &failure) {
		out.Kind = string(failure.Kind)
	}
	return out
}

func (h *Handler) send(conn *websocket.Conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

// pingLoop 定期发送ping消息; WriteControl可与WriteJSON并发调用
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
