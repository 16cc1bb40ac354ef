// Package admin serves read-only introspection of an extension registry
// over HTTP.
//
// # Endpoints
//
//	GET /api/v1/modules              discovered modules
//	GET /api/v1/modules/{name}       one module with its points and extensions
//	GET /api/v1/points               declared extension points
//	GET /api/v1/extensions?point=    available extensions, optionally of one point
//	GET /healthz                     registry build status
//	GET /metrics                     Prometheus metrics
//
// Passing all=true to /api/v1/extensions includes disabled and unlicensed
// extensions.
package admin
