package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger tagged with component. An unknown level falls
// back to info. The global zerolog level is left alone.
func New(cfg Config, component string) zerolog.Logger {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := cfg.Writer
	if out == nil {
		out = outputWriter(cfg.Output)
	}
	if strings.ToLower(cfg.Format) == FormatConsole {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		}
	}

	zc := zerolog.New(out).Level(level).With()
	if component != "" {
		zc = zc.Str("component", component)
	}
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return zc.Logger()
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	default:
		return os.Stderr
	}
}
