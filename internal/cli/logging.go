package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/FranksOps/furrow/internal/config"
)

// newLogger writes text logs to stderr and, when file is set, appends them to
// file as well. The returned func closes the file.
func newLogger(level, file string, stderr io.Writer) (*slog.Logger, func() error, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	out := stderr
	closeFn := func() error { return nil }
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("context: open log file: %w", err)
		}
		out = io.MultiWriter(stderr, f)
		closeFn = f.Close
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})), closeFn, nil
}
