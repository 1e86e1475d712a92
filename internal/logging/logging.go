package logging

import (
    "os"
    "time"

    "github.com/rs/zerolog"
)

// New builds the diagnostic logger. It always writes to stderr: stdout is
// reserved for the single JSON result object and must never carry log text.
func New(level string) zerolog.Logger {
    lvl, err := zerolog.ParseLevel(level)
    if err != nil || lvl == zerolog.NoLevel {
        lvl = zerolog.InfoLevel
    }
    out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
    return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
