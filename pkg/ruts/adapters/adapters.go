// Package adapters mounts the ruts dispatcher on Echo, Gin and Fiber.
package adapters

import (
	"errors"
	"net/http"

	"github.com/toyz/ruts/pkg/ruts"
)

// errorBody renders a handler error the way every adapter reports it.
func errorBody(err error) (int, map[string]any) {
	var httpErr *ruts.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, map[string]any{"error": httpErr.Message}
	}
	return http.StatusInternalServerError, map[string]any{"error": err.Error()}
}

func toHTTPCookie(cookie ruts.Cookie) *http.Cookie {
	return &http.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		Expires:  cookie.Expires,
		MaxAge:   cookie.MaxAge,
		Secure:   cookie.Secure,
		HttpOnly: cookie.HttpOnly,
		SameSite: http.SameSite(cookie.SameSite),
	}
}

func fromHTTPCookie(c *http.Cookie) ruts.Cookie {
	return ruts.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: ruts.SameSiteMode(c.SameSite),
	}
}
