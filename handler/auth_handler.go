package handler

import (
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"
	"time"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	service AuthService
	users   UserService
}

func NewAuthHandler(service AuthService, users UserService) *AuthHandler {
	return &AuthHandler{service: service, users: users}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a local account and returns a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user  body      model.RegisterRequest  true  "User registration info"
// @Success      201   {object}  model.Session
// @Failure      400   {object}  common.AppError
// @Failure      409   {object}  common.AppError
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	logger.Log.WithField("email", req.Email).Info("Register request received")

	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusCreated, session)
	return nil
}

// Login godoc
// @Summary      Log in with email and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      model.LoginRequest  true  "Login credentials"
// @Success      200          {object}  model.Session
// @Failure      400          {object}  common.AppError
// @Failure      401          {object}  common.AppError
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	logger.Log.WithField("email", req.Email).Info("Login request received")

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, session)
	return nil
}

// GoogleLogin godoc
// @Summary      Log in with a Google ID token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  body      model.GoogleLoginRequest  true  "Google ID token"
// @Success      200    {object}  model.Session
// @Failure      401    {object}  common.AppError
// @Failure      503    {object}  common.AppError
// @Router       /auth/google [post]
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.GoogleLoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	session, err := h.service.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, session)
	return nil
}

// GoogleAuthURL godoc
// @Summary      Start the Google OAuth flow
// @Description  Returns the consent page URL and sets a state cookie checked by the callback
// @Tags         auth
// @Produce      json
// @Success      200  {object}  model.GoogleAuthURLResponse
// @Failure      503  {object}  common.AppError
// @Router       /auth/google/url [get]
func (h *AuthHandler) GoogleAuthURL(w http.ResponseWriter, r *http.Request) *common.AppError {
	state, err := service.NewOAuthState()
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not start Google login", err)
	}

	url, err := h.service.GoogleAuthURL(state)
	if err != nil {
		return serviceError(err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	common.WriteJSON(w, http.StatusOK, model.GoogleAuthURLResponse{URL: url})
	return nil
}

// GoogleCallback godoc
// @Summary      Complete the Google OAuth flow
// @Tags         auth
// @Produce      json
// @Param        code   query     string  true  "Authorization code"
// @Param        state  query     string  true  "OAuth state"
// @Success      200    {object}  model.Session
// @Failure      400    {object}  common.AppError
// @Failure      401    {object}  common.AppError
// @Router       /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) *common.AppError {
	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		return common.NewAppError(http.StatusUnauthorized, "Google login was cancelled", nil)
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != query.Get("state") {
		return common.NewAppError(http.StatusBadRequest, "Invalid OAuth state", nil)
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth/google", MaxAge: -1})

	code := query.Get("code")
	if code == "" {
		return common.NewAppError(http.StatusBadRequest, "Missing authorization code", nil)
	}

	session, err := h.service.LoginWithGoogleCode(r.Context(), code)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, session)
	return nil
}

// Refresh godoc
// @Summary      Rotate a refresh token
// @Description  Consumes the refresh token and returns a new session. A token can be used once.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  body      model.RefreshTokenRequest  true  "Refresh token"
// @Success      200    {object}  model.Session
// @Failure      401    {object}  common.AppError
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshTokenRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	session, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, session)
	return nil
}

// Logout godoc
// @Summary      Revoke a refresh token
// @Tags         auth
// @Accept       json
// @Param        token  body  model.RefreshTokenRequest  true  "Refresh token"
// @Success      204
// @Failure      401  {object}  common.AppError
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshTokenRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		return serviceError(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Me godoc
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.ProfileResponse
// @Failure      401  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, _, appErr := identityFrom(r)
	if appErr != nil {
		return appErr
	}

	user, err := h.users.Profile(r.Context(), userID)
	if err != nil {
		return serviceError(err)
	}

	common.WriteJSON(w, http.StatusOK, model.ProfileResponse{
		User:        *user,
		Permissions: service.PermissionsForRole(user.Role),
	})
	return nil
}

// Validate godoc
// @Summary      Introspect an access token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  body      model.ValidateTokenRequest  true  "Access token"
// @Success      200    {object}  model.TokenIntrospection
// @Failure      401    {object}  common.AppError
// @Router       /auth/validate [post]
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ValidateTokenRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	result, err := h.service.Introspect(r.Context(), req.Token)
	if err != nil {
		return accessTokenError(err)
	}

	common.WriteJSON(w, http.StatusOK, result)
	return nil
}
