// Package httpserver exposes the SOS session API over HTTP/JSON. It is the
// operational surface of the service: the Telegram gateway and ops tooling
// both speak to the same engine this server fronts.
//
// Endpoints live under /v1. Mutating endpoints are POST with JSON bodies;
// reads are GET with query parameters. Every response carries an
// X-Request-Id header for correlation.
package httpserver
