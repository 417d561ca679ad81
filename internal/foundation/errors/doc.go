// Package errors provides foundational, type-safe error primitives used across foliobuilder.
//
// Key features:
//   - ErrorCategory: Broad error classification (config, lock, publish, document, asset, etc.)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: Retry behavior (never, immediate, backoff, user action)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLIErrorAdapter: exit code and message mapping for the command line
//
// Example usage:
//
//	err := errors.LockError("another build holds the lock").
//		WithContext("lock", lockPath).
//		WithCause(os.ErrExist).
//		Build()
package errors
