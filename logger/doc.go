// Package logger provides structured logging for procinvoke using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers. The invoker tags every record of a single
// invocation with an invocation id so the start, timeout escalation and
// teardown of one child process can be followed in a busy log.
//
// # Configuration
//
//	logger:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("process")
//	log.Info("process started", logger.Fields(logger.FieldPID, pid))
package logger
