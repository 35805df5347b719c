package logging

import "log/slog"

// Common field names for consistent logging.
const (
	FieldService    = "service"
	FieldSession    = "session_id"
	FieldJobID      = "job_id"
	FieldPattern    = "pattern"
	FieldGeneration = "generation"
	FieldStep       = "step"
	FieldIndex      = "index"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// JobID returns a slog attribute for a rollup job ID.
func JobID(id string) slog.Attr {
	return slog.String(FieldJobID, id)
}

// Pattern returns a slog attribute for a source index pattern.
func Pattern(p string) slog.Attr {
	return slog.String(FieldPattern, p)
}

// Generation returns a slog attribute for a field request generation.
func Generation(g uint64) slog.Attr {
	return slog.Uint64(FieldGeneration, g)
}

// Step returns a slog attribute for a wizard step number.
func Step(n int) slog.Attr {
	return slog.Int(FieldStep, n)
}

// Index returns a slog attribute for a concrete index name.
func Index(name string) slog.Attr {
	return slog.String(FieldIndex, name)
}

// Status returns a slog attribute for an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
