package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"fjacquet/finchat/internal/chatbot"
	"fjacquet/finchat/internal/flowerror"
	"fjacquet/finchat/internal/logging"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type handlers struct {
	bot       Bot
	snapshots Snapshots
	logger    logging.Logger
}

type messageRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Text           string `json:"text"`
	Origin         string `json:"origin"`
}

type messageResponse struct {
	Reply   string   `json:"reply"`
	Options []string `json:"options"`
	Pending bool     `json:"pending"`
	State   string   `json:"state,omitempty"`
}

func (h *handlers) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.WithError(err).Warn("Failed to decode message request")
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.bot.Handle(r.Context(), chatbot.Message{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Text:           req.Text,
		Origin:         req.Origin,
	})
	if err != nil {
		h.fail(w, err, "failed to handle message")
		return
	}

	options := resp.Options
	if options == nil {
		options = []string{}
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Reply:   resp.Reply,
		Options: options,
		Pending: resp.Pending,
		State:   string(resp.State),
	})
}

func (h *handlers) getConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")
	snapshot, ok, err := h.snapshots.Serialize(id)
	if err != nil {
		h.fail(w, err, "failed to serialize conversation")
		return
	}
	if !ok {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *handlers) putConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	unlock := h.bot.Lock(id)
	defer unlock()

	if err := h.snapshots.Hydrate(r.Context(), id, payload); err != nil {
		h.fail(w, err, "failed to restore conversation")
		return
	}
	if err := h.snapshots.Checkpoint(r.Context(), id); err != nil {
		h.logger.WithError(err).Warn("Could not checkpoint restored flow",
			logging.F(logging.FieldConversationID, id))
	}
	h.logger.Info("Conversation restored", logging.F(logging.FieldConversationID, id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversation_id")
	if !h.bot.Cancel(r.Context(), id) {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps an error to a status code. Error details stay in the log.
func (h *handlers) fail(w http.ResponseWriter, err error, msg string) {
	var collab *flowerror.CollaboratorError
	switch {
	case flowerror.IsInput(err):
		h.logger.WithError(err).Warn("Rejected request")
		http.Error(w, "invalid request", http.StatusBadRequest)
	case errors.As(err, &collab):
		h.logger.WithError(err).Error("Collaborator unavailable",
			logging.F(logging.FieldCollaborator, collab.Collaborator))
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.WithError(err).Error(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
