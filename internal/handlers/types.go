package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"mobicomm_store/internal/checkout"
)

const sessionCookieName = "checkout_sid"

// sessionID returns the visitor's checkout session id, minting one on
// first contact. The cookie is the only client-side state; everything
// else lives in the session store.
func sessionID(c echo.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sid, err := checkout.NewSessionID()
	if err != nil {
		// crypto/rand failing means the host is broken; fall back to a
		// per-request id so the page still renders.
		return "anon"
	}
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    sid,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	return sid
}

// getStringFromContext safely extracts a string value from echo context
func getStringFromContext(c echo.Context, key string) string {
	if val := c.Get(key); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
