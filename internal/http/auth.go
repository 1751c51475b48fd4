package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/addrbook/addrbook/internal/service"
	"github.com/addrbook/addrbook/pkg/httpx"
	"github.com/addrbook/addrbook/pkg/slogx"
)

// AuthHandler serves the registration, login and account-recovery endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

// HandleRegister creates a new account and triggers the confirmation mail.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.AuthService.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin verifies credentials and returns a bearer session token.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	token, err := h.AuthService.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, token)
}

// HandleConfirmEmail redeems a confirmation link.
func (h *AuthHandler) HandleConfirmEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := r.PathValue("token")
	if token == "" {
		ErrVerification.WriteError(w)
		return
	}

	if err := h.AuthService.ConfirmEmail(ctx, token); err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, detailResponse{Detail: "email confirmed"})
}

type emailRequest struct {
	Email string `json:"email"`
}

// HandleRequestEmail re-sends the confirmation mail. The response is the
// same whether or not the address exists.
func (h *AuthHandler) HandleRequestEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.AuthService.RequestEmailVerification(ctx, strings.TrimSpace(req.Email)); err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, detailResponse{Detail: "confirmation email has been sent"})
}

// HandleForgotPassword mails a password reset link.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.AuthService.ForgotPassword(ctx, strings.TrimSpace(req.Email)); err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, detailResponse{Detail: "reset instructions have been sent"})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// HandleResetPassword redeems a reset token and sets the new password.
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.AuthService.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, detailResponse{Detail: "password has been reset"})
}
