package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-api/internal/apperr"
	"github.com/iliyamo/inventory-api/internal/middleware"
	"github.com/iliyamo/inventory-api/internal/model"
	"github.com/iliyamo/inventory-api/internal/service"
	"github.com/iliyamo/inventory-api/internal/utils"
)

// RefreshCookie is the cookie carrying the refresh token.
const RefreshCookie = "refresh_token"

// CookieConfig controls the auth cookies.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler serves the session endpoints.
type AuthHandler struct {
	Svc     *service.AuthService
	Cookies CookieConfig
}

func NewAuthHandler(svc *service.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{Svc: svc, Cookies: cookies}
}

// ----- DTOs -----

type registerReq struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Role     string  `json:"role"` // admin | store_manager | staff
	StoreID  *uint64 `json:"store_id"`
}

type loginReq struct {
	UsernameOrEmail string `json:"username_or_email"`
	Email           string `json:"email"` // accepted when username_or_email is empty
	Password        string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type updateAccountReq struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type sessionResp struct {
	User         model.PublicUser `json:"user"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
}

// Register creates an account. No session is started.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	u, err := h.Svc.Register(c.Request().Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		StoreID:  req.StoreID,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "User registered successfully!", u.Public())
}

// Login starts a session and sets both auth cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	ident := req.UsernameOrEmail
	if ident == "" {
		ident = req.Email
	}
	s, err := h.Svc.Login(c.Request().Context(), ident, req.Password)
	if err != nil {
		return err
	}
	h.setSessionCookies(c, s)
	return respond(c, http.StatusOK, "Login successful!", sessionResp{
		User:         s.User,
		AccessToken:  s.Access.Value,
		RefreshToken: s.Refresh.Value,
	})
}

// Logout ends the session of the authenticated user and clears both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.Unauthorized("Unauthorized request.")
	}
	if err := h.Svc.Logout(c.Request().Context(), u); err != nil {
		return err
	}
	h.clearSessionCookies(c)
	return respond(c, http.StatusOK, "Logout successful!", nil)
}

// Refresh rotates the refresh token. The token is taken from the cookie,
// falling back to the JSON body.
func (h *AuthHandler) Refresh(c echo.Context) error {
	presented := ""
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		presented = ck.Value
	}
	if presented == "" {
		var req refreshReq
		if err := c.Bind(&req); err != nil {
			return apperr.BadRequest("Invalid request body.")
		}
		presented = req.RefreshToken
	}
	s, err := h.Svc.Refresh(c.Request().Context(), presented)
	if err != nil {
		return err
	}
	h.setSessionCookies(c, s)
	return respond(c, http.StatusOK, "New tokens sent!", sessionResp{
		User:         s.User,
		AccessToken:  s.Access.Value,
		RefreshToken: s.Refresh.Value,
	})
}

// CurrentUser returns the authenticated user.
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.Unauthorized("Unauthorized request.")
	}
	return respond(c, http.StatusOK, "Returning current user successfully!", echo.Map{"user": u.Public()})
}

// UpdateAccount changes name and/or email of the authenticated user.
func (h *AuthHandler) UpdateAccount(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.Unauthorized("Unauthorized request.")
	}
	var req updateAccountReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	updated, err := h.Svc.UpdateProfile(c.Request().Context(), u, req.Name, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Account details updated successfully.", echo.Map{"user": updated.Public()})
}

// ChangePassword replaces the password and ends the session; the client has
// to log in again.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.Unauthorized("Unauthorized request.")
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("Invalid request body.")
	}
	if err := h.Svc.ChangePassword(c.Request().Context(), u, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	h.clearSessionCookies(c)
	return respond(c, http.StatusOK, "Password changed successfully. Please log in again.", nil)
}

func (h *AuthHandler) setSessionCookies(c echo.Context, s *service.Session) {
	c.SetCookie(h.cookie(middleware.AccessCookie, s.Access, h.Cookies.AccessTTL))
	c.SetCookie(h.cookie(RefreshCookie, s.Refresh, h.Cookies.RefreshTTL))
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessCookie, RefreshCookie} {
		ck := h.cookie(name, utils.Token{}, 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func (h *AuthHandler) cookie(name string, tok utils.Token, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    tok.Value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
