package logging

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// CrashLogName is the crash trail file written into the log dir.
const CrashLogName = "crash.log"

// RecordPanic logs a recovered panic with its stack and, when path is set,
// dumps the crash trail there. It returns the dump error, if any.
func RecordPanic(component, where string, rec any, path string) error {
	log := ForComponent(component)
	log.Error("panic",
		slog.String("where", where),
		slog.String("recover", fmt.Sprintf("%v", rec)),
		slog.String("stack", string(debug.Stack())))
	if path == "" {
		return nil
	}
	if err := DumpRingBuffer(path); err != nil {
		log.Error("crash_dump_failed", slog.String("path", path), slog.String("error", err.Error()))
		return err
	}
	log.Info("crash_dump_written", slog.String("path", path))
	return nil
}
