package transport

import "log/slog"

func endpointLogger(path string, attrs ...any) *slog.Logger {
	logger := slog.With("component", "transport", "endpoint", path)
	if len(attrs) == 0 {
		return logger
	}

	return logger.With(attrs...)
}
