package middleware

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const adminCookieName = "admin_token"

// RequireAdmin returns a middleware that gates the admin screens on the
// JWT issued by the backend at login. The signature is the backend's to
// verify; here we only check the grant is present and not expired, and
// every proxied call carries it for the backend to reject if forged.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(adminCookieName)
			if err != nil || cookie.Value == "" {
				return c.Redirect(http.StatusTemporaryRedirect, "/admin/login")
			}

			claims := jwt.MapClaims{}
			if _, _, err := jwt.NewParser().ParseUnverified(cookie.Value, claims); err != nil {
				clearAdminCookie(c)
				return c.Redirect(http.StatusTemporaryRedirect, "/admin/login")
			}
			exp, err := claims.GetExpirationTime()
			if err != nil || exp == nil || exp.Before(time.Now()) {
				clearAdminCookie(c)
				return c.Redirect(http.StatusTemporaryRedirect, "/admin/login?error=session_expired")
			}

			// Downstream handlers forward the raw grant to the backend
			c.Set("adminToken", cookie.Value)
			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				c.Set("adminUsername", sub)
			}

			return next(c)
		}
	}
}

// SetAdminCookie binds a fresh login grant to the browser
func SetAdminCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     adminCookieName,
		Value:    token,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/admin",
	})
}

func clearAdminCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/admin",
	})
}

// ClearAdminCookie logs the admin out locally
func ClearAdminCookie(c echo.Context) {
	clearAdminCookie(c)
}
