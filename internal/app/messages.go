package app

import (
	"context"
	"log/slog"
)

// MessageHandle identifies one physical message in a chat.
type MessageHandle struct {
	ChatID    string `json:"chatId"`
	MessageID int64  `json:"messageId"`
}

// PromptOption is a lettered answer as shown to the user.
type PromptOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Prompt is everything the messenger needs to pose one question.
type Prompt struct {
	AttemptID     string         `json:"attemptId"`
	Number        int            `json:"number"`
	Total         int            `json:"total"`
	Text          string         `json:"text"`
	ImageRef      string         `json:"imageRef,omitempty"`
	Options       []PromptOption `json:"options"`
	TimeLimit     int            `json:"timeLimit"`
	TimeLimitText string         `json:"timeLimitText"`
}

// Messenger is the chat boundary. PostPrompt may produce several messages
// (image plus poll); Delete is best effort.
type Messenger interface {
	PostPrompt(ctx context.Context, chatID string, prompt Prompt) ([]MessageHandle, error)
	Send(ctx context.Context, chatID, kind, text string) (MessageHandle, error)
	Delete(ctx context.Context, handle MessageHandle) error
}

// Outbound message kinds used with Messenger.Send.
const (
	KindNotice  = "notice"
	KindSummary = "summary"
	KindError   = "error"
)

// MessageJanitor tracks ephemeral prompts and notices and removes them once a
// session ends.
type MessageJanitor struct {
	messenger Messenger
	log       *slog.Logger
}

// NewMessageJanitor returns a janitor deleting through messenger.
func NewMessageJanitor(messenger Messenger, log *slog.Logger) *MessageJanitor {
	if log == nil {
		log = slog.Default()
	}
	return &MessageJanitor{messenger: messenger, log: log}
}

// Track queues handles for deletion at cleanup.
func (j *MessageJanitor) Track(s *Session, handles ...MessageHandle) {
	if len(handles) == 0 {
		return
	}
	s.pendingMu.Lock()
	s.pending = append(s.pending, handles...)
	s.pendingMu.Unlock()
}

// Pending returns a copy of the tracked handles.
func (j *MessageJanitor) Pending(s *Session) []MessageHandle {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return append([]MessageHandle(nil), s.pending...)
}

// Cleanup deletes every tracked message. Failures are logged and ignored.
func (j *MessageJanitor) Cleanup(ctx context.Context, s *Session) int {
	s.pendingMu.Lock()
	handles := s.pending
	s.pending = nil
	s.pendingMu.Unlock()

	deleted := 0
	for _, h := range handles {
		if err := j.messenger.Delete(ctx, h); err != nil {
			j.log.Debug("delete message", "chat", h.ChatID, "message", h.MessageID, "err", err)
			continue
		}
		deleted++
	}
	return deleted
}
