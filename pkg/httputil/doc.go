// Package httputil provides HTTP helpers shared by the admin server.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteError(w, http.StatusServiceUnavailable, err)
//	httputil.WriteNotFound(w, "module not found: shapes")
//
// # Request Parsing
//
//	name, ok := httputil.ParsePathStringOrError(w, r, "name")
//	all, err := httputil.ParseQueryBool(r, "all", false)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(log),
//		httputil.RecoveryMiddleware(log),
//	)
package httputil
