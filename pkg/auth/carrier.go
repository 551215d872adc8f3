package auth

import (
	"net/http"
	"strings"
)

const (
	// BearerScheme is the Authorization header scheme
	BearerScheme = "Bearer"

	// HandshakeProtocol is the websocket subprotocol that precedes the token
	// in the Sec-WebSocket-Protocol list: "bearer, <token>".
	HandshakeProtocol = "bearer"

	// HandshakeQueryParam is the query parameter carrying a handshake token
	HandshakeQueryParam = "token"
)

// BearerToken extracts the token from an Authorization header value.
// ok is false when the header is absent or not of the form "Bearer <token>".
func BearerToken(header string) (token string, ok bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], BearerScheme) {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// HandshakeToken extracts the credential from a realtime handshake request.
// Carriers are checked in priority order: the auth field (subprotocol list),
// the query parameter, then the Authorization header.
func HandshakeToken(r *http.Request) string {
	if token := subprotocolToken(r); token != "" {
		return token
	}
	if token := r.URL.Query().Get(HandshakeQueryParam); token != "" {
		return token
	}
	if token, ok := BearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return ""
}

func subprotocolToken(r *http.Request) string {
	var protocols []string
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(header, ",") {
			if p = strings.TrimSpace(p); p != "" {
				protocols = append(protocols, p)
			}
		}
	}
	for i := 0; i+1 < len(protocols); i++ {
		if strings.EqualFold(protocols[i], HandshakeProtocol) {
			return protocols[i+1]
		}
	}
	return ""
}
