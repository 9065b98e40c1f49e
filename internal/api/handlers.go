package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nipun22325/secret-sharing/config"
	"github.com/nipun22325/secret-sharing/internal/logs"
	"github.com/nipun22325/secret-sharing/internal/secrets"
	"github.com/nipun22325/secret-sharing/web"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
)

type Handler struct {
	service *secrets.Service
	config  *config.Config
}

func NewHandler(s *secrets.Service, cfg *config.Config) *Handler {
	return &Handler{
		service: s,
		config:  cfg,
	}
}

type CreateRequest struct {
	Content           string `json:"content"`
	TTLHours          int    `json:"ttl_hours,omitempty"`
	PasswordProtected bool   `json:"password_protected,omitempty"`
	AccessPassword    string `json:"access_password,omitempty"`
}

type CreateResponse struct {
	SecretID  string    `json:"secret_id"`
	ExpiresAt time.Time `json:"expires_at"`
	QRCode    string    `json:"qr_code,omitempty"`
}

type RetrieveRequest struct {
	AccessPassword string `json:"access_password,omitempty"`
}

type ContentResponse struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type InfoResponse struct {
	Exists            bool      `json:"exists"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	PasswordProtected bool      `json:"password_protected"`
	Viewed            bool      `json:"viewed"`
}

type StatsResponse struct {
	TotalCreated  int64 `json:"total_secrets_created"`
	TotalViewed   int64 `json:"total_secrets_viewed"`
	ActiveSecrets int64 `json:"active_secrets"`
}

type SweepResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"message": "Disposable Secret Sharing API is running"})
}

func (h *Handler) CreateSecret(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.Create(r.Context(), secrets.CreateParams{
		Content:           req.Content,
		TTLHours:          req.TTLHours,
		PasswordProtected: req.PasswordProtected,
		AccessPassword:    req.AccessPassword,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := CreateResponse{
		SecretID:  created.ID,
		ExpiresAt: created.ExpiresAt,
	}

	// QR payload for the share link; rendering failure is not worth failing
	// the create over.
	viewURL := h.config.Server.BaseURL + "/view/" + created.ID
	if png, err := qrcode.Encode(viewURL, qrcode.Medium, 256); err == nil {
		resp.QRCode = base64.StdEncoding.EncodeToString(png)
	} else {
		logs.Logger.WithField("secret_id", created.ID).Warnf("qr code generation failed: %v", err)
	}

	h.json(w, http.StatusCreated, resp)
}

func (h *Handler) RetrieveSecret(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req RetrieveRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	content, err := h.service.Retrieve(r.Context(), id, req.AccessPassword)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.json(w, http.StatusOK, ContentResponse{
		Content:   content.Content,
		CreatedAt: content.CreatedAt,
		ExpiresAt: content.ExpiresAt,
	})
}

func (h *Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	info, err := h.service.Info(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.json(w, http.StatusOK, InfoResponse{
		Exists:            true,
		CreatedAt:         info.CreatedAt,
		ExpiresAt:         info.ExpiresAt,
		PasswordProtected: info.PasswordProtected,
		Viewed:            info.Viewed,
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.json(w, http.StatusOK, StatsResponse{
		TotalCreated:  stats.TotalCreated,
		TotalViewed:   stats.TotalViewed,
		ActiveSecrets: stats.ActiveSecrets,
	})
}

func (h *Handler) AdminSweep(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.Sweep(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.json(w, http.StatusOK, SweepResponse{DeletedCount: deleted})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "index.html")
}

func (h *Handler) ViewPage(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, "view.html")
}

func (h *Handler) serveFile(w http.ResponseWriter, filename string) {
	content, err := web.GetFile(filename)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(content)
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	var verr *secrets.ValidationError
	switch {
	case errors.As(err, &verr):
		h.error(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, secrets.ErrNotFound):
		h.error(w, http.StatusNotFound, "secret not found or has expired")
	case errors.Is(err, secrets.ErrAlreadyViewed):
		h.error(w, http.StatusGone, "secret has already been viewed")
	case errors.Is(err, secrets.ErrPasswordRequired):
		h.error(w, http.StatusUnauthorized, "password required")
	case errors.Is(err, secrets.ErrInvalidPassword):
		h.error(w, http.StatusUnauthorized, "invalid password")
	case errors.Is(err, secrets.ErrDecryptionFailed):
		h.error(w, http.StatusInternalServerError, "failed to decrypt secret")
	default:
		logs.Logger.Errorf("internal error: %v", err)
		h.error(w, http.StatusInternalServerError, "internal error")
	}
}
