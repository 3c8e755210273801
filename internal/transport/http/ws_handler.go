package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"edubot-quiz/internal/app"
	"edubot-quiz/internal/domain"
	"github.com/gorilla/websocket"
)

// StrategyResolver picks the completion strategy for a flavor.
type StrategyResolver interface {
	Lookup(flavor domain.Flavor) (app.Strategy, error)
}

type WSHandler struct {
	service    *app.QuizService
	hub        *Hub
	strategies StrategyResolver
	log        *slog.Logger
	upgrader   websocket.Upgrader
}

// NewWSHandler wires the websocket endpoint to the engine and hub.
func NewWSHandler(service *app.QuizService, hub *Hub, strategies StrategyResolver, log *slog.Logger) *WSHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WSHandler{
		service:    service,
		hub:        hub,
		strategies: strategies,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Flavor      domain.Flavor `json:"flavor"`
	HomeworkID  string        `json:"homeworkId"`
	BonusTestID string        `json:"bonusTestId"`
	Subjects    []string      `json:"subjects"`
	PerSubject  int           `json:"perSubject"`
}

type answerPayload struct {
	AttemptID   string `json:"attemptId"`
	OptionIndex *int   `json:"optionIndex"`
}

type closedPayload struct {
	AttemptID string `json:"attemptId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type imagePayload struct {
	MessageID int64  `json:"messageId"`
	ImageRef  string `json:"imageRef"`
}

type promptPayload struct {
	MessageID int64 `json:"messageId"`
	app.Prompt
}

type textPayload struct {
	MessageID int64  `json:"messageId"`
	Text      string `json:"text"`
}

type deletePayload struct {
	MessageID int64 `json:"messageId"`
}

type startedPayload struct {
	SessionID string `json:"sessionId"`
	Total     int    `json:"total"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and routes chat events into the quiz engine.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	chatID := r.URL.Query().Get("chatId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}
	if chatID == "" {
		chatID = userID
	}
	owner := domain.Owner{UserID: userID, ChatID: chatID}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	c := h.hub.attach(chatID, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by a newer connection"),
			time.Now().Add(time.Second))
		conn.Close()
	})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "chat", chatID, "err", err)
				// Keep draining so deliver never sees a stuck queue.
				for range c.send {
				}
				return
			}
		}
	}()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, owner, inbound)
	}

	h.hub.detach(c)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, owner domain.Owner, inbound inboundMessage) {
	switch inbound.Type {
	case "start":
		var payload startPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.replyError(ctx, owner, "invalid start payload")
			return
		}
		h.start(ctx, owner, payload)
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.AttemptID == "" {
			h.replyError(ctx, owner, "invalid answer payload")
			return
		}
		index := app.NoOption
		if payload.OptionIndex != nil {
			index = *payload.OptionIndex
		}
		h.service.OnAnswer(ctx, owner.UserID, payload.AttemptID, index)
	case "closed":
		var payload closedPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.AttemptID == "" {
			h.replyError(ctx, owner, "invalid closed payload")
			return
		}
		h.service.OnPromptClosed(ctx, owner.UserID, payload.AttemptID)
	default:
		h.replyError(ctx, owner, "unsupported message type")
	}
}

func (h *WSHandler) start(ctx context.Context, owner domain.Owner, payload startPayload) {
	strategy, err := h.strategies.Lookup(payload.Flavor)
	if err != nil {
		h.replyError(ctx, owner, userMessage(err))
		return
	}
	params := domain.QuizParams{
		Flavor:      payload.Flavor,
		HomeworkID:  payload.HomeworkID,
		BonusTestID: payload.BonusTestID,
		Subjects:    payload.Subjects,
		PerSubject:  payload.PerSubject,
	}
	sess, err := h.service.Start(ctx, owner, params, strategy)
	if err != nil {
		h.log.Info("quiz start refused", "user", owner.UserID, "flavor", payload.Flavor, "err", err)
		h.replyError(ctx, owner, userMessage(err))
		return
	}
	_ = h.hub.deliver(owner.ChatID, outboundMessage[any]{Type: "started", Payload: startedPayload{SessionID: sess.ID(), Total: sess.Total()}})
}

func (h *WSHandler) replyError(_ context.Context, owner domain.Owner, msg string) {
	_ = h.hub.deliver(owner.ChatID, outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}})
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoQuestions):
		return "This quiz has no questions yet."
	case errors.Is(err, domain.ErrQuizNotFound):
		return "Quiz not found."
	case errors.Is(err, domain.ErrNotPurchased):
		return "Buy this test in the shop first."
	case errors.Is(err, domain.ErrSessionActive):
		return "Finish your current quiz before starting another one."
	case errors.Is(err, domain.ErrUnknownFlavor):
		return "Unknown quiz type."
	default:
		return "Could not start the quiz. Please try again later."
	}
}
