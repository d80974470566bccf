package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/egovauthenticator/api/internal/application/verification"
	"github.com/egovauthenticator/api/internal/domain"
	"github.com/egovauthenticator/api/internal/pkg/validate"
	"github.com/egovauthenticator/api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// VerificationHandler handles document verification endpoints.
type VerificationHandler struct {
	svc            verification.Service
	uploadMaxBytes int64
	log            *zap.Logger
}

func NewVerificationHandler(svc verification.Service, uploadMaxBytes int64, log *zap.Logger) *VerificationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerificationHandler{svc: svc, uploadMaxBytes: uploadMaxBytes, log: log}
}

func (h *VerificationHandler) OCR(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	upload, err := readUpload(w, r, h.uploadMaxBytes)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	out, err := h.svc.VerifyDocument(r.Context(), claims.UserID, upload)
	h.respond(w, out, err)
}

func (h *VerificationHandler) PSA(w http.ResponseWriter, r *http.Request) {
	var req domain.PSAVerifyRequest
	userID, ok := decodeForm(w, r, &req)
	if !ok {
		return
	}
	out, err := h.svc.VerifyPSA(r.Context(), userID, req)
	h.respond(w, out, err)
}

func (h *VerificationHandler) Voters(w http.ResponseWriter, r *http.Request) {
	var req domain.VotersVerifyRequest
	userID, ok := decodeForm(w, r, &req)
	if !ok {
		return
	}
	out, err := h.svc.VerifyVoters(r.Context(), userID, req)
	h.respond(w, out, err)
}

func (h *VerificationHandler) PhilSys(w http.ResponseWriter, r *http.Request) {
	var req domain.PhilSysVerifyRequest
	userID, ok := decodeForm(w, r, &req)
	if !ok {
		return
	}
	out, err := h.svc.VerifyPhilSys(r.Context(), userID, req)
	h.respond(w, out, err)
}

func (h *VerificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.svc.List(r.Context(), claims.UserID, filter)
	if err != nil {
		h.log.Error("list verifications", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListForUser is the admin view of another user's records.
func (h *VerificationHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.svc.List(r.Context(), chi.URLParam(r, "id"), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *VerificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *VerificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verification deleted"})
}

func (h *VerificationHandler) respond(w http.ResponseWriter, out *verification.Outcome, err error) {
	if err != nil {
		h.log.Warn("verification failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// decodeForm decodes and validates a JSON body into req and returns the caller's id.
func decodeForm(w http.ResponseWriter, r *http.Request, req interface{}) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return claims.UserID, true
}

func callerFrom(w http.ResponseWriter, r *http.Request) (verification.Caller, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return verification.Caller{}, false
	}
	return verification.Caller{UserID: claims.UserID, Role: claims.Role}, true
}

// parseFilter reads ?filter=&type=PSA&type=VOTERS&page=&per_page=. Type values may
// also be comma-separated.
func parseFilter(r *http.Request) (domain.VerificationFilter, error) {
	q := r.URL.Query()
	f := domain.VerificationFilter{Text: q.Get("filter")}
	for _, raw := range q["type"] {
		for _, t := range strings.Split(raw, ",") {
			t = strings.ToUpper(strings.TrimSpace(t))
			switch vt := domain.VerificationType(t); vt {
			case "":
			case domain.VerificationPSA, domain.VerificationPhilSys, domain.VerificationVoters, domain.VerificationUnknown:
				f.Types = append(f.Types, vt)
			default:
				return f, &badParam{name: "type", value: t}
			}
		}
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return f, nil
}

type badParam struct{ name, value string }

func (e *badParam) Error() string { return "invalid " + e.name + " " + strconv.Quote(e.value) }
