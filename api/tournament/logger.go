package tournament

import "log/slog"

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func (e *Engine) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "tournament",
		"layer", "engine",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	e.logger.Error("tournament operation failed", fields...)
	return err
}
