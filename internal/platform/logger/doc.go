// Package logger provides structured logging functionality for the map maker.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, and carries loggers through context.Context so that
// every pipeline stage logs with the run's identifier attached.
package logger
