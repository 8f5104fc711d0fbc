// Package logging writes structured JSON logs to ~/.lexsearch/logs/ with
// size-based rotation, and reads them back for `lexsearch logs`.
//
// Interactive and MCP modes log to the file only: stdout carries the
// terminal UI or the JSON-RPC stream.
package logging
