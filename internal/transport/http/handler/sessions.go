package handler

import (
	"encoding/json"
	"net/http"

	"github.com/egovauthenticator/api/internal/application/user"
	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/pkg/validate"
)

// SessionHandler issues bearer tokens.
type SessionHandler struct {
	svc user.Service
}

func NewSessionHandler(svc user.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Bearer: result.Bearer, User: result.User})
}
