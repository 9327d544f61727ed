// Package httpserver exposes traced's control plane over HTTP: event
// ingest, the enable/disable toggle, configuration, dump requests, and
// artifact retrieval. Handlers live in the controllers subpackage; this
// package owns the mux, CORS, and server lifecycle.
package httpserver
