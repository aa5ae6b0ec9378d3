// Package httpapi exposes a Runtime over HTTP with a chi router.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics                         Prometheus, when configured
//	GET  /plugins                         installed plugins
//	GET  /ownership                       ownership ledger
//	GET  /forms                           known form definitions
//	GET  /forms/{definition}
//	POST /forms/{definition}/validate     {"values": {...}}
//	POST /forms/{definition}/submit       {"instance": "...", "values": {...}}
//
// Validation messages are translated using the request's Accept-Language
// header.
package httpapi
