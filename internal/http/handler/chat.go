package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"todobot/internal/auth"
	"todobot/internal/bot"
	"todobot/internal/chat"
	"todobot/internal/memo"
)

// Conversation is the message log as the HTTP layer sees it. *chat.Repo implements it.
type Conversation interface {
	Receive(ctx context.Context, chatID int64, text string) (chat.Message, error)
	Get(ctx context.Context, chatID, messageID int64) (chat.Message, error)
	List(ctx context.Context, chatID, after int64, limit int) ([]chat.Message, error)
}

// Bot is the conversation layer. *bot.Service implements it.
type Bot interface {
	Dispatch(ctx context.Context, chatID int64, text string) error
	Press(ctx context.Context, chatID, messageID int64, data string) error
	Memos(ctx context.Context, chatID int64, tag string) ([]*memo.Memo, error)
}

type ChatHandler struct {
	Log    Conversation
	Bot    Bot
	Logger *zap.Logger
}

type postMessageReq struct {
	Text string `json:"text"`
}

type pressReq struct {
	Data string `json:"data"`
}

type messageDTO struct {
	ID        int64         `json:"id"`
	FromBot   bool          `json:"from_bot"`
	Text      string        `json:"text"`
	ParseMode string        `json:"parse_mode,omitempty"`
	Keyboard  chat.Keyboard `json:"keyboard,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type memoDTO struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Messages []int64  `json:"messages"`
	Tags     []string `json:"tags"`
}

// PostMessage records what the user wrote and lets the bot react to it.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	chatID, _ := auth.ChatIDFromContext(r.Context())

	var req postMessageReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		http.Error(w, "text required", http.StatusBadRequest)
		return
	}

	in, err := h.Log.Receive(r.Context(), chatID, req.Text)
	if err != nil {
		h.Logger.Error("record message failed", zap.Int64("chat_id", chatID), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if err := h.Bot.Dispatch(r.Context(), chatID, req.Text); err != nil {
		h.Logger.Error("dispatch failed",
			zap.Int64("chat_id", chatID),
			zap.Int64("message_id", in.ID),
			zap.Error(err),
		)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"message_id": in.ID})
}

// Press handles a click on one of the buttons under a bot message.
func (h *ChatHandler) Press(w http.ResponseWriter, r *http.Request) {
	chatID, _ := auth.ChatIDFromContext(r.Context())

	msgID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req pressReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	m, err := h.Log.Get(r.Context(), chatID, msgID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		h.Logger.Error("load message failed", zap.Int64("message_id", msgID), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if !m.FromBot || !m.HasAction(req.Data) {
		http.Error(w, "no such button", http.StatusBadRequest)
		return
	}

	err = h.Bot.Press(r.Context(), chatID, msgID, req.Data)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, memo.ErrNotFound):
		http.Error(w, "memo not found", http.StatusNotFound)
	case errors.Is(err, bot.ErrUnknownAction):
		http.Error(w, "unknown action", http.StatusBadRequest)
	default:
		h.Logger.Error("press failed", zap.Int64("message_id", msgID), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

// Messages returns the conversation log after the given message id.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	chatID, _ := auth.ChatIDFromContext(r.Context())

	var after int64
	if v := strings.TrimSpace(r.URL.Query().Get("after")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			http.Error(w, "invalid after", http.StatusBadRequest)
			return
		}
		after = n
	}

	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := h.Log.List(r.Context(), chatID, after, limit)
	if err != nil {
		h.Logger.Error("list messages failed", zap.Int64("chat_id", chatID), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]messageDTO, 0, len(rows))
	for _, m := range rows {
		out = append(out, messageDTO{
			ID:        m.ID,
			FromBot:   m.FromBot,
			Text:      m.Text,
			ParseMode: m.ParseMode,
			Keyboard:  m.Keyboard(),
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Memos lists the chat's active memos, optionally only those with ?tag=.
func (h *ChatHandler) Memos(w http.ResponseWriter, r *http.Request) {
	chatID, _ := auth.ChatIDFromContext(r.Context())

	memos, err := h.Bot.Memos(r.Context(), chatID, r.URL.Query().Get("tag"))
	if err != nil {
		h.Logger.Error("list memos failed", zap.Int64("chat_id", chatID), zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	out := make([]memoDTO, 0, len(memos))
	for _, m := range memos {
		tags := m.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, memoDTO{ID: m.ID, Text: m.Text, Messages: m.Messages, Tags: tags})
	}
	writeJSON(w, http.StatusOK, out)
}
