package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/claimdesk/claims-api/internal/application/claim"
	"github.com/claimdesk/claims-api/internal/application/verification"
	"github.com/claimdesk/claims-api/internal/domain"
	"github.com/claimdesk/claims-api/internal/transport/http/middleware"
)

// maxUploadMemory bounds the in-memory portion of a multipart submission.
const maxUploadMemory = 32 << 20

// fileKinds are the multipart part names accepted on submission.
var fileKinds = []string{domain.MethodDocument, domain.MethodVideo, "logo", "cover"}

// ClaimHandler handles claim lifecycle endpoints.
type ClaimHandler struct {
	claims       claim.Service
	verification verification.Service
}

func NewClaimHandler(claims claim.Service, verification verification.Service) *ClaimHandler {
	return &ClaimHandler{claims: claims, verification: verification}
}

func actorFrom(r *http.Request) (claim.Actor, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return claim.Actor{}, false
	}
	return claim.Actor{UserID: claims.UserID, Role: claims.Role}, true
}

// Submit accepts either a JSON body or a multipart form whose "payload" part
// carries the JSON fields and whose file parts carry the proof attachments.
func (h *ClaimHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req domain.SubmitClaimRequest
	var files []domain.ProofFile

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("payload")), &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload JSON")
			return
		}
		var err error
		files, err = readProofFiles(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read uploaded file")
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	claimID, err := h.claims.Submit(r.Context(), actor, req, files)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ClaimEnvelope{
		ClaimID: claimID,
		Message: "claim submitted, verification pending",
	})
}

func readProofFiles(r *http.Request) ([]domain.ProofFile, error) {
	var files []domain.ProofFile
	for _, kind := range fileKinds {
		f, hdr, err := r.FormFile(kind)
		if err == http.ErrMissingFile {
			continue
		}
		if err != nil {
			continue // absent or malformed part, the service validates requirements
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, domain.ProofFile{
			Kind:        kind,
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func (h *ClaimHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	claims, err := h.claims.ListMine(r.Context(), actor)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claims)
}

func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	c, err := h.claims.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type verifyCodeRequest struct {
	Method string `json:"method"`
	Code   string `json:"code"`
}

func (h *ClaimHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Method == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "method and code are required")
		return
	}
	if err := h.verification.VerifyCode(r.Context(), chi.URLParam(r, "id"), req.Method, req.Code, actor.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "verified"})
}

type resendCodeRequest struct {
	Method string `json:"method"`
}

func (h *ClaimHandler) ResendCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req resendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, "method is required")
		return
	}
	if err := h.verification.ResendCode(r.Context(), chi.URLParam(r, "id"), req.Method, actor.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "a new code has been sent"})
}

func (h *ClaimHandler) BusinessStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	status, err := h.claims.BusinessStatus(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *ClaimHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.claims.Approve(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "claim approved"})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *ClaimHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req rejectRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.claims.Reject(r.Context(), actor, chi.URLParam(r, "id"), req.Reason); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "claim rejected"})
}
