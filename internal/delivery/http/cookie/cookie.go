// Package cookie places the auth tokens on responses and reads them back from requests.
package cookie

import (
	"net/http"
	"strings"
	"time"

	"dbaportal/config"

	"github.com/labstack/echo/v4"
)

const (
	AccessTokenName  = "access_token"
	RefreshTokenName = "refresh_token"

	bearerPrefix = "Bearer "
)

// Manager writes and clears the auth cookies. Set and clear share one attribute set,
// otherwise browsers keep the old cookie.
type Manager struct {
	secure     bool
	domain     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager derives the cookie attributes from the environment. Secure and Domain
// are only applied in production.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		accessTTL:  cfg.Auth.AccessTokenTTL,
		refreshTTL: cfg.Auth.RefreshTokenTTL,
	}
	if cfg.IsProduction() {
		m.secure = true
		if cfg.Cookie != nil {
			m.domain = cfg.Cookie.Domain
		}
	}

	return m
}

// SetAuthCookies writes both tokens.
func (m *Manager) SetAuthCookies(c echo.Context, accessToken, refreshToken string) {
	c.SetCookie(m.cookie(AccessTokenName, accessToken, int(m.accessTTL.Seconds())))
	c.SetCookie(m.cookie(RefreshTokenName, refreshToken, int(m.refreshTTL.Seconds())))
}

// ClearAuthCookies expires both tokens. A negative MaxAge is sent as Max-Age=0.
func (m *Manager) ClearAuthCookies(c echo.Context) {
	c.SetCookie(m.cookie(AccessTokenName, "", -1))
	c.SetCookie(m.cookie(RefreshTokenName, "", -1))
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// AccessToken returns the bearer token, falling back to the access_token cookie.
func AccessToken(r *http.Request) string {
	if token := BearerToken(r); token != "" {
		return token
	}
	if c, err := r.Cookie(AccessTokenName); err == nil {
		return c.Value
	}

	return ""
}

// BearerToken returns the credentials of an Authorization: Bearer header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(header[len(bearerPrefix):])
}

// RefreshToken returns the refresh_token cookie value.
func RefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenName); err == nil {
		return c.Value
	}

	return ""
}
