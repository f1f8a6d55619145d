package logging_test

import (
	"io"
	"log/slog"

	"scanstation/internal/logging"
)

func slogJSON(w io.Writer) *slog.Logger {
	return slog.New(logging.NewJSONHandler(w, "debug"))
}
