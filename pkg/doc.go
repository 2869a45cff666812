// Package pkg provides the logging and error values shared by the LCD2USB
// device firmware and host tools.
//
// # Logging
//
// Logging wraps [log/slog] and tags every record with the emitting
// subsystem:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDispatch, "controllers detected", "map", 3)
//
// # Errors
//
// Failures are reported as sentinel values that callers match with
// [errors.Is]:
//
//	if errors.Is(err, pkg.ErrHardwareTimeout) {
//	    // controller never cleared its busy flag
//	}
package pkg
