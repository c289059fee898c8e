// Package errors provides the structured error type shared by procinvoke
// packages. Every failure surfaced by the invoker is an *AppError carrying a
// machine-readable code, retryable detection and structured details, so a
// caller can diagnose a failed invocation without touching the process again.
package errors
