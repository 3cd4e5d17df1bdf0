package api

import (
	"net/http"

	"github.com/bobarin/storyboard/internal/models"
	"github.com/go-chi/chi/v5"
)

// ListChats handles GET /v1/chats
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	st := h.orch.State()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"chats":        st.Chats,
		"activeChatId": st.ActiveChatID,
	})
}

// CreateChat handles POST /v1/chats
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, h.orch.NewChat(r.Context()))
}

// SelectChat handles PUT /v1/chats/active
func (h *Handler) SelectChat(w http.ResponseWriter, r *http.Request) {
	var req models.SelectRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.orch.SelectChat(r.Context(), req.ID); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.orch.ActiveChat())
}

// UpdateChat handles PATCH /v1/chats/{id}
func (h *Handler) UpdateChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatUpdateRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if req.Title != nil {
		if err := h.orch.RenameChat(ctx, id, *req.Title); err != nil {
			respondErr(w, err)
			return
		}
	}
	if req.Pinned != nil {
		if err := h.orch.PinChat(ctx, id, *req.Pinned); err != nil {
			respondErr(w, err)
			return
		}
	}

	for _, c := range h.orch.State().Chats {
		if c.ID == id {
			respondJSON(w, http.StatusOK, c)
			return
		}
	}
	respondError(w, http.StatusNotFound, "Chat not found")
}

// DeleteChat handles DELETE /v1/chats/{id}
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.DeleteChat(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendChatMessage handles POST /v1/chat/messages
func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	var req models.ChatMessageRequest
	if !decode(w, r, &req) {
		return
	}

	session, err := h.orch.SendChatMessage(detached(r), req.Text)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// FinalizeChat handles POST /v1/chat/finalize
func (h *Handler) FinalizeChat(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.FinalizeChat(detached(r)); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.orch.ActiveProject())
}

// SetDialogue handles PUT /v1/chat/dialogue
func (h *Handler) SetDialogue(w http.ResponseWriter, r *http.Request) {
	var req models.DialogueRequest
	if !decode(w, r, &req) {
		return
	}
	h.orch.SetDialogueMode(req.Enabled)
	respondJSON(w, http.StatusOK, h.orch.Session())
}
