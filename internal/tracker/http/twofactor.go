package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"

	"github.com/pquerna/otp"

	"github.com/untoldhq/fintrack/internal/tracker/audit"
	"github.com/untoldhq/fintrack/internal/tracker/service"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/httpx"
	"github.com/untoldhq/fintrack/pkg/sessionx"
	"github.com/untoldhq/fintrack/pkg/slogx"
)

// TwoFactorHandler manages TOTP enrollment for an authenticated user. The
// generated secret lives only in the session until the user confirms a code
// from their authenticator.
type TwoFactorHandler struct {
	TwoFactor *service.TwoFactorService
	Store     store.Store
	Sessions  *sessionx.Manager
	Audit     *audit.Recorder
}

type enrollResponse struct {
	Secret  string `json:"secret"`
	URL     string `json:"url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// HandleEnroll handles POST /v1/auth/2fa/enroll.
func (h *TwoFactorHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.ActorID(ctx)

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		log.Error("failed to load user", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	enr, err := h.TwoFactor.BeginEnrollment(ctx, user)
	if err != nil {
		if errors.Is(err, service.ErrTwoFactorAlreadyEnabled) {
			httpx.WriteError(w, http.StatusBadRequest,
				"2fa_already_enabled", "Two-factor authentication is already enabled.")
			return
		}
		log.Error("failed to begin enrollment", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	if err := h.Sessions.SetPendingEnrollment(w, r, enr.Secret); err != nil {
		log.Error("failed to save pending enrollment", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, enrollResponse{
		Secret:  enr.Secret,
		URL:     enr.URL,
		Issuer:  enr.Issuer,
		Account: enr.Account,
	})
}

// HandleQR handles GET /v1/auth/2fa/qr, rendering the pending enrollment's
// provisioning URI as a PNG for authenticator apps to scan.
func (h *TwoFactorHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	secret, ok := h.Sessions.PendingEnrollment(r)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound,
			"no_pending_enrollment", "Start enrollment before requesting the QR code.")
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, httpx.ActorID(ctx))
	if err != nil {
		log.Error("failed to load user", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	key, err := otp.NewKeyFromURL(h.TwoFactor.ProvisioningURI(secret, user.Email))
	if err != nil {
		log.Error("failed to parse provisioning URI", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	img, err := key.Image(256, 256)
	if err != nil {
		log.Error("failed to render QR image", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Error("failed to encode QR image", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// HandleConfirm handles POST /v1/auth/2fa/confirm.
func (h *TwoFactorHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.ActorID(ctx)

	secret, ok := h.Sessions.PendingEnrollment(r)
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest,
			"no_pending_enrollment", "Start enrollment before confirming a code.")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "A verification code is required.")
		return
	}

	if err := h.TwoFactor.ConfirmEnrollment(ctx, userID, secret, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			// Pending secret stays put so the user can retry.
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_code", "The verification code is incorrect or expired.")
		case errors.Is(err, service.ErrTwoFactorAlreadyEnabled):
			httpx.WriteError(w, http.StatusBadRequest,
				"2fa_already_enabled", "Two-factor authentication is already enabled.")
		default:
			log.Error("failed to confirm enrollment", "user_id", userID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		}
		return
	}

	if err := h.Sessions.ClearPending(w, r); err != nil {
		log.Error("failed to clear pending enrollment", "err", err)
	}

	h.Audit.Emit(ctx, audit.Entry{
		Action:       audit.ActionTwoFactorEnabled,
		ResourceType: "user",
		ResourceID:   userID,
		Description:  "TOTP enrollment confirmed",
	})

	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

// HandleDisable handles DELETE /v1/auth/2fa.
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	userID := httpx.ActorID(ctx)

	if err := h.TwoFactor.Disable(ctx, userID); err != nil {
		if errors.Is(err, service.ErrTwoFactorNotEnabled) {
			httpx.WriteError(w, http.StatusBadRequest,
				"2fa_not_enabled", "Two-factor authentication is not enabled.")
			return
		}
		log.Error("failed to disable 2FA", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	h.Audit.Emit(ctx, audit.Entry{
		Action:       audit.ActionTwoFactorDisabled,
		ResourceType: "user",
		ResourceID:   userID,
		Description:  "TOTP disabled",
	})

	w.WriteHeader(http.StatusNoContent)
}
