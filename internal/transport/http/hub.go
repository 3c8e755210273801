package http

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"edubot-quiz/internal/app"
)

var errClientBacklogged = errors.New("client send buffer is full")

const sendBuffer = 32

type client struct {
	chatID string
	send   chan outboundMessage[any]
	// kick closes the connection so its read loop stops dispatching.
	kick func()
}

// Hub is the chat-side Messenger: one websocket client per chat, each with a
// buffered send queue drained by its writer goroutine. Messages addressed to
// a chat with no connected client are dropped, so a session whose client went
// away still runs to its timeouts.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	seq     atomic.Int64
	log     *slog.Logger
}

var _ app.Messenger = (*Hub)(nil)

// NewHub returns an empty hub; a nil log uses slog.Default.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{clients: make(map[string]*client), log: log}
}

// attach registers a client for chatID. A previous connection for the same
// chat is displaced: its queue is closed and its socket kicked.
func (h *Hub) attach(chatID string, kick func()) *client {
	c := &client{chatID: chatID, send: make(chan outboundMessage[any], sendBuffer), kick: kick}
	h.mu.Lock()
	prev, displaced := h.clients[chatID]
	if displaced {
		close(prev.send)
	}
	h.clients[chatID] = c
	h.mu.Unlock()

	if displaced && prev.kick != nil {
		h.log.Info("chat reconnected, closing previous connection", "chat", chatID)
		prev.kick()
	}
	return c
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.chatID] == c {
		delete(h.clients, c.chatID)
		close(c.send)
	}
}

// Connected reports whether chatID has a live client.
func (h *Hub) Connected(chatID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[chatID]
	return ok
}

// deliver never blocks; callers hold session locks.
func (h *Hub) deliver(chatID string, msg outboundMessage[any]) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[chatID]
	if !ok {
		h.log.Debug("chat offline, message dropped", "chat", chatID, "type", msg.Type)
		return nil
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errClientBacklogged
	}
}

func (h *Hub) nextHandle(chatID string) app.MessageHandle {
	return app.MessageHandle{ChatID: chatID, MessageID: h.seq.Add(1)}
}

// PostPrompt sends the optional image and then the poll, one handle each.
func (h *Hub) PostPrompt(_ context.Context, chatID string, prompt app.Prompt) ([]app.MessageHandle, error) {
	var handles []app.MessageHandle
	if prompt.ImageRef != "" {
		img := h.nextHandle(chatID)
		if err := h.deliver(chatID, outboundMessage[any]{Type: "image", Payload: imagePayload{MessageID: img.MessageID, ImageRef: prompt.ImageRef}}); err != nil {
			return nil, err
		}
		handles = append(handles, img)
	}
	poll := h.nextHandle(chatID)
	if err := h.deliver(chatID, outboundMessage[any]{Type: "prompt", Payload: promptPayload{MessageID: poll.MessageID, Prompt: prompt}}); err != nil {
		return handles, err
	}
	return append(handles, poll), nil
}

func (h *Hub) Send(_ context.Context, chatID, kind, text string) (app.MessageHandle, error) {
	handle := h.nextHandle(chatID)
	if err := h.deliver(chatID, outboundMessage[any]{Type: kind, Payload: textPayload{MessageID: handle.MessageID, Text: text}}); err != nil {
		return app.MessageHandle{}, err
	}
	return handle, nil
}

func (h *Hub) Delete(_ context.Context, handle app.MessageHandle) error {
	return h.deliver(handle.ChatID, outboundMessage[any]{Type: "delete", Payload: deletePayload{MessageID: handle.MessageID}})
}
