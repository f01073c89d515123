// Package errors provides the classified error primitives used across mdconvert.
//
// Every layer reports failures as a ClassifiedError so the CLI can pick an exit
// code and log level without string matching:
//   - ErrorCategory: what failed (config, io, storage, render, dependency, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether a caller may try again
//   - ErrorBuilder: fluent construction with context and cause
//
// Example usage:
//
//	err := errors.IOError("read source").
//		WithContext("path", path).
//		WithCause(originalErr).
//		Build()
package errors
