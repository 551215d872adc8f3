package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/platinummonkey/panelhub/pkg/auth"
	"github.com/platinummonkey/panelhub/pkg/httputil"
	"github.com/platinummonkey/panelhub/pkg/observability"
	"github.com/sirupsen/logrus"
)

// EventPong answers a client's {"event":"ping"} frame
const EventPong = "pong"

// IdentityResolver turns a handshake credential into an identity
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Identity, error)
}

// Gateway authenticates realtime handshakes and serves the upgraded connections.
// A handshake is verified before the upgrade; a request without a resolvable
// identity is answered with 401 and never joins the registry.
type Gateway struct {
	resolver IdentityResolver
	registry *Registry
	upgrader websocket.Upgrader
	logger   logrus.FieldLogger
	metrics  *observability.Metrics
}

// NewGateway creates a gateway. allowedOrigins lists browser origins permitted
// to connect; "*" allows any. Requests without an Origin header are allowed.
func NewGateway(resolver IdentityResolver, registry *Registry, allowedOrigins []string, logger logrus.FieldLogger, metrics *observability.Metrics) *Gateway {
	return &Gateway{
		resolver: resolver,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{auth.HandshakeProtocol},
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || httputil.OriginAllowed(allowedOrigins, origin)
			},
		},
		logger:  logger,
		metrics: metrics,
	}
}

// ServeHTTP handles one connection from handshake to disconnect
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := g.authenticate(r)
	if err != nil {
		g.metrics.RealtimeHandshake("rejected")
		g.logger.WithError(err).WithField("remote_addr", r.RemoteAddr).Debug("realtime handshake rejected")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response
		g.metrics.RealtimeHandshake("upgrade_failed")
		g.logger.WithError(err).Debug("realtime upgrade failed")
		return
	}
	g.metrics.RealtimeHandshake("accepted")

	conn := NewConnection(identity.ID, ws)
	logger := g.logger.WithFields(logrus.Fields{
		"user_id": identity.ID,
		"conn_id": conn.ID,
	})

	g.registry.Join(conn)
	conn.Start()
	logger.Info("realtime connection joined")

	defer func() {
		g.registry.Leave(conn)
		conn.Close(websocket.CloseNormalClosure, "session closed")
		logger.Info("realtime connection closed")
	}()

	g.readLoop(conn, ws, logger)
}

func (g *Gateway) authenticate(r *http.Request) (*auth.Identity, error) {
	token := auth.HandshakeToken(r)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return g.resolver.Resolve(r.Context(), token)
}

// readLoop drains client frames until the peer goes away. Only ping frames
// are answered; everything else is ignored.
func (g *Gateway) readLoop(conn *Connection, ws *websocket.Conn, logger logrus.FieldLogger) {
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				logger.WithError(err).Debug("realtime read ended")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		var frame struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		if frame.Event == "ping" {
			if payload, err := json.Marshal(Envelope{Event: EventPong}); err == nil {
				_ = conn.Send(payload)
			}
		}
	}
}
