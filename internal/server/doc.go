// Package server exposes the export pipeline over HTTP using gin.
//
// # Routes
//
//	GET  /health  status and version
//	GET  /lists   exportable lists for ?token=
//	POST /export  token, format (csv|json), single_file
//
// Parameters are read from the form body first, then the query string. The token may also be
// sent as an Authorization header.
//
// /export returns a single file directly when the export produced exactly one file or when
// single_file is set. Otherwise every file is bundled into ms-todo-export.zip.
//
// # Errors
//
// Failures are written as {"error": message}. An invalid or expired token maps to 401,
// a persistent rate limit to 429, missing or malformed input to 400 and everything else to 500.
//
// # Middleware
//
// Every response carries an X-Request-ID header. A valid UUID sent by the client is echoed,
// otherwise a new one is generated. One access log line is written per request.
//
// Each request builds its own client through the [ClientFactory], so remote data is never
// shared between requests.
package server
