// Package realtime pushes live events to connected users over websockets.
//
// Each authenticated connection joins a room addressed by the user's identity
// id, so a user with several tabs or devices receives every event on all of
// them. Events are fire-and-forget: nothing is queued for users who are not
// connected, so callers that need durability persist first and emit second.
//
// The handshake credential is taken from, in order:
//
//   - the Sec-WebSocket-Protocol list "bearer, <token>" (browser clients)
//   - the "token" query parameter
//   - the "Authorization: Bearer <token>" header
//
// Frames are JSON envelopes:
//
//	{"event": "notification:new", "data": {...}}
//
// Wiring:
//
//	registry := realtime.NewRegistry(logger, metrics)
//	router.Handle("/ws", realtime.NewGateway(resolver, registry, origins, logger, metrics))
//	registry.Emit(userID, "notification:new", n)
package realtime
