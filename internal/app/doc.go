// Package app provides the application service layer.
//
// Orchestrates use cases: vote ingestion, tally reads, debounced live updates and the
// question lifecycle. Sits between HTTP/websocket adapters and domain repositories.
// Depends on domain interfaces, not concrete implementations.
package app
