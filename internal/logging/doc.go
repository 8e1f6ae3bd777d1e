// Package logging configures structured slog logging for bm25vec.
//
// Logs are JSON lines written to a size-rotated file, by default
// ~/.bm25vec/logs/bm25vec.log, and optionally tee'd to stderr. The Viewer
// reads them back for the logs command.
package logging
