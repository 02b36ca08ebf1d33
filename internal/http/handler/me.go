package handler

import (
	"encoding/json"
	"net/http"

	"todobot/internal/auth"
)

type MeHandler struct{}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	chatID, _ := auth.ChatIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"chat_id": chatID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
