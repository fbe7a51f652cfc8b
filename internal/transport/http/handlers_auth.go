package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"marketplace/internal/auth/models"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	"marketplace/pkg/platform/httputil"
	"marketplace/pkg/requestcontext"
)

//go:generate mockgen -source=handlers_auth.go -destination=mocks/auth_mocks.go -package=mocks AuthService

// AuthService is the auth gate the handlers delegate to.
type AuthService interface {
	Register(ctx context.Context, input models.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
	Refresh(ctx context.Context, token string) (*models.Identity, error)
	ChangePassword(ctx context.Context, userID id.UserID, currentPassword, newPassword string) error
}

// AuthHandler wires registration, login, and session endpoints.
type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

// Register mounts the public auth endpoints.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.Post("/auth/refresh", h.HandleRefresh)
}

// RegisterProtected mounts the endpoints that need an authenticated user.
func (h *AuthHandler) RegisterProtected(r chi.Router) {
	r.Post("/auth/change-password", h.HandleChangePassword)
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

func (r *registerRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if !govalidator.StringLength(r.Email, "3", "255") || !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if !govalidator.StringLength(r.Password, "8", "128") {
		return dErrors.New(dErrors.CodeValidation, "password must be between 8 and 128 characters")
	}
	if !models.Role(r.Role).Valid() {
		return dErrors.New(dErrors.CodeValidation, "role must be BUYER or SELLER")
	}
	return nil
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address,omitempty"`
}

func fromUser(user *models.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
		Phone:     user.Phone,
		Address:   user.Address,
	}
}

// HandleRegister handles POST /auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	user, err := h.service.Register(ctx, models.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.Role(req.Role),
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"email", req.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"user_id", user.ID,
		"role", user.Role,
	)
	httputil.WriteJSON(w, http.StatusCreated, fromUser(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// HandleLogin handles POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
			"email", req.Email,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		"request_id", requestID,
		"user_id", result.User.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  fromUser(result.User),
	})
}

// HandleLogout handles POST /auth/logout. It takes the token straight from
// the Authorization header; a token without a live session still logs out
// cleanly.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing credentials"))
		return
	}

	if err := h.service.Logout(ctx, token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleRefresh handles POST /auth/refresh. Refresh skips signature
// verification and keys off the stored session row, so a client can trade a
// token that just expired for a fresh one while the session is still live.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := h.service.Refresh(ctx, bearerToken(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, refreshResponse{
		Token:     identity.Token,
		ExpiresAt: identity.ExpiresAt,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r *changePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "current_password is required")
	}
	if !govalidator.StringLength(r.NewPassword, "8", "128") {
		return dErrors.New(dErrors.CodeValidation, "new_password must be between 8 and 128 characters")
	}
	return nil
}

// HandleChangePassword handles POST /auth/change-password.
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[changePasswordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	userID := requestcontext.UserID(ctx)
	if err := h.service.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.logger.WarnContext(ctx, "password change failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
