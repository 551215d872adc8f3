// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Every error response in panelhub has the same shape:
//
//	{"message": "human readable reason"}
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteUnauthorized(w, "invalid or expired token")
//	httputil.WriteForbidden(w, "not a member of this group")
//	httputil.WriteInternalError(w) // cause is logged by the caller, never sent
//
// # Request Parsing
//
//	var req ProgressRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	comicID, ok := httputil.ParsePathInt64OrError(w, r, "comicId")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication and role middleware
//   - pkg/groups: Group scope and membership middleware
package httputil
