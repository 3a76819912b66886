package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// CookieName is the name of the staff session cookie
const CookieName = "mesa_session"

// ErrNoToken is returned when a request carries no session token.
var ErrNoToken = errors.New("no session token in request")

// IsSecureRequest infers whether the client reached us over HTTPS.
func IsSecureRequest(r *http.Request) bool {
	return r.TLS != nil ||
		r.Header.Get("X-Forwarded-Proto") == "https" ||
		strings.HasPrefix(r.URL.Scheme, "https")
}

// CreateSessionCookieForRequest creates a session cookie whose Secure flag
// follows the request scheme.
func CreateSessionCookieForRequest(token string, ttl time.Duration, r *http.Request) *http.Cookie {
	secure := IsSecureRequest(r)
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSiteMode(secure),
	}
}

// DeleteSessionCookie creates a cookie that clears the session cookie
func DeleteSessionCookie(r *http.Request) *http.Cookie {
	secure := IsSecureRequest(r)
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSiteMode(secure),
	}
}

// Strict for HTTPS, Lax for plain HTTP during local development.
func sameSiteMode(secure bool) http.SameSite {
	if !secure {
		return http.SameSiteLaxMode
	}
	return http.SameSiteStrictMode
}

// TokenFromRequest returns the session token from the Authorization header
// or, failing that, the session cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, err := ExtractJWTFromAuthHeader(header); err == nil {
			return token, nil
		}
	}

	cookie, err := r.Cookie(CookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", ErrNoToken
}
