// Package logging provides structured diagnostic logging for olx.
//
// Records are JSON lines produced by log/slog. Logging is off unless the
// logging.enabled configuration key is set, in which case records are
// appended to logging.file. The file is rotated when it grows past
// logging.max_size_mb, keeping logging.max_backups older copies.
//
// # Usage
//
//	logger, err := logging.NewLogger(path, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLogger := logger.WithInvocation(id).WithRun("fall2019")
//	runLogger.WithStage("render").Info("stage finished", "files", 2)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"stage finished","invocation_id":"...","run":"fall2019","stage":"render","files":2}
package logging
