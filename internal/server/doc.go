// Package server exposes the task engine over HTTP.
//
// # Router Infrastructure
//
// [BasicRouter] wraps [http.ServeMux] method patterns ("POST /projects/{project_id}/backup")
// with a middleware stack. [Middleware] wraps handlers in reverse order (last added executes first).
//
// Custom handlers implement the [Handler] interface, which adds the list of patterns they serve.
// [ProjectHandler] and [TaskHandler] dispatch on [http.Request.Pattern].
//
// # Authentication
//
// Authentication happens in front of the service. [CurrentUserMiddleware] trusts the
// X-User-ID header and rejects requests without it.
//
// # Errors
//
// [StatusFor] maps the sentinel errors of package shared onto status codes:
// authorization 403, not found 404, validation and parse 400, conflict 409, anything else 500.
package server
