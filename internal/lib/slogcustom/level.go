package slogcustom

import (
	"fmt"
	"log/slog"
	"strings"
)

// ParseLevel переводит строку из конфигурации (debug, info, warn, error) в slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: %w", s, err)
	}

	return level, nil
}
