package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/untoldhq/fintrack/internal/tracker/service"
	"github.com/untoldhq/fintrack/pkg/httpx"
	"github.com/untoldhq/fintrack/pkg/sessionx"
	"github.com/untoldhq/fintrack/pkg/slogx"
)

// AuthHandler handles the login state machine endpoints.
type AuthHandler struct {
	Login    *service.LoginService
	Sessions *sessionx.Manager
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type loginResponse struct {
	Status     string    `json:"status"` // "ok" or "2fa_required"
	RedirectTo string    `json:"redirect_to,omitempty"`
	User       *userView `json:"user,omitempty"`
}

type userView struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// HandleLogin handles POST /v1/auth/login.
//
// Every primary-factor failure maps to the same 401 so callers cannot probe
// which emails exist. A 2FA-enabled account gets a pending session instead
// of an authenticated one.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body.")
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Email and password are required.")
		return
	}

	res, err := h.Login.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized,
				"invalid_credentials", "Email or password is incorrect.")
			return
		}
		log.Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	if res.SecondFactorRequired {
		if err := h.Sessions.SetPendingChallenge(w, r, res.User.ID); err != nil {
			log.Error("failed to save pending session", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, loginResponse{Status: "2fa_required"})
		return
	}

	h.completeLogin(w, r, res)
}

// HandleVerifySecondFactor handles POST /v1/auth/2fa/verify.
func (h *AuthHandler) HandleVerifySecondFactor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := h.Sessions.PendingChallenge(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized,
			"no_pending_login", "No login awaiting a verification code.")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "A verification code is required.")
		return
	}

	res, err := h.Login.CompleteSecondFactor(ctx, userID, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTOTPCode) {
			// The pending state survives a wrong code; the user may retry
			// within the rate limit.
			httpx.WriteError(w, http.StatusUnauthorized,
				"invalid_code", "The verification code is incorrect or expired.")
			return
		}
		log.Error("second factor verification failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	h.completeLogin(w, r, res)
}

// HandleLogout handles POST /v1/auth/logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.Login.Logout(ctx, httpx.ActorID(ctx))

	if err := h.Sessions.Clear(w, r); err != nil {
		slogx.FromContext(ctx).Error("failed to clear session", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangePassword handles POST /v1/auth/password.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body.")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Current and new passwords are required.")
		return
	}

	if err := h.Login.ChangePassword(ctx, httpx.ActorID(ctx), req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_password", "The current password is incorrect.")
			return
		}
		log.Error("password change failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request, res service.LoginResult) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := h.Sessions.Authenticate(w, r, res.User.ID, res.Role.Name); err != nil {
		log.Error("failed to save session", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Something went wrong.")
		return
	}

	redirect := "/dashboard"
	if res.Role.IsAdmin() {
		redirect = "/admin"
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Status:     "ok",
		RedirectTo: redirect,
		User: &userView{
			ID:       res.User.ID,
			FullName: res.User.FullName,
			Email:    res.User.Email,
			Role:     res.Role.Name,
		},
	})
}
