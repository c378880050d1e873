// Package logging provides structured, rotation-aware logging for the
// search engine server. Logs are JSON (slog), written to
// ~/.codesearch/logs/server.log by default and optionally mirrored to
// stderr.
package logging
