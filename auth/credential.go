package auth

import (
	"chat-gateway/errors"
	"fmt"
	"net/http"
	"strings"
)

// TokenQueryParam carries the credential for clients that cannot set headers
// on a websocket handshake.
const TokenQueryParam = "token"

// BearerFromRequest extracts the credential from the Authorization header,
// falling back to the token query parameter.
func BearerFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return "", fmt.Errorf("%w: malformed authorization header", errors.ErrAuthentication)
		}
		return token, nil
	}
	if token := strings.TrimSpace(r.URL.Query().Get(TokenQueryParam)); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("%w: credential is missing", errors.ErrAuthentication)
}
