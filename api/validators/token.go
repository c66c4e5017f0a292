package validators

import (
	"errors"
	"net/http"
	"strings"
)

var ErrMissingToken = errors.New("payment token missing")

// CallbackToken reads the gateway session token from a callback. Gateways
// post it as a form field; some redirect with it in the query string.
func CallbackToken(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrMissingToken
	}
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			if token := strings.TrimSpace(r.PostForm.Get("token")); token != "" {
				return token, nil
			}
		}
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, nil
	}
	// Stripe redirects carry the checkout session id.
	if token := strings.TrimSpace(r.URL.Query().Get("session_id")); token != "" {
		return token, nil
	}
	return "", ErrMissingToken
}
