package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
)

const (
	ansiReset     = "\033[0m"
	ansiRed       = "\033[31m"
	ansiGreen     = "\033[32m"
	ansiYellow    = "\033[33m"
	ansiCyan      = "\033[36m"
	ansiGray      = "\033[90m"
	ansiUnderline = "\033[4m"
)

//nolint:gochecknoglobals
var levelColors = map[slog.Level]string{
	slog.LevelDebug: ansiCyan,
	slog.LevelInfo:  ansiGreen,
	slog.LevelWarn:  ansiYellow,
	slog.LevelError: ansiRed,
}

// ConsoleHandler implements slog.Handler with coloured, human-readable output
// for development.
type ConsoleHandler struct {
	// Output is the destination for log output (typically os.Stdout or os.Stderr)
	Output io.Writer
	// Level is the minimum level for loggers without a PkgLevels entry
	Level slog.Leveler
	// PkgLevels maps logger name prefixes to minimum levels; the longest prefix wins
	PkgLevels map[string]slog.Level

	attrs  []slog.Attr
	groups []string

	// mu serializes writes of concurrent connection sessions; shared with derived handlers.
	mu *sync.Mutex
}

var _ slog.Handler = (*ConsoleHandler)(nil)

// minLevel returns the level that applies to the logger called name.
func (h *ConsoleHandler) minLevel(name string) slog.Level {
	return levelFor(h.PkgLevels, name, h.Level.Level())
}

// levelFor walks the dotted prefixes of name and returns the first level found
// in levels, or fallback.
func levelFor(levels map[string]slog.Level, name string, fallback slog.Level) slog.Level {
	for name != "" {
		if level, ok := levels[name]; ok {
			return level
		}

		cut := strings.LastIndexByte(name, '.')
		if cut < 0 {
			break
		}

		name = name[:cut]
	}

	return fallback
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))

	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)

		return true
	})

	attrs = append(attrs, h.attrs...)

	var name string

	for _, attr := range attrs {
		if attr.Key == LoggerKey {
			name = attr.Value.String()

			break
		}
	}

	if r.Level < h.minLevel(name) {
		return nil
	}

	var line strings.Builder

	line.WriteString(ansiGray + r.Time.Format("15:04:05.000000") + ansiReset)
	line.WriteString(" " + levelColors[r.Level] + "[" + r.Level.String() + "]" + ansiReset)
	line.WriteString(" " + r.Message)

	if len(attrs) > 0 {
		var prefix string
		if len(h.groups) > 0 {
			prefix = strings.Join(h.groups, ".") + "."
		}

		line.WriteString(" " + ansiGray + "|" + ansiReset)
		writeAttrs(&line, prefix, attrs)
	}

	frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
	fn := frame.Function[strings.LastIndex(frame.Function, string(os.PathSeparator))+1:]

	line.WriteString("\n-> " + ansiGray + fn + "()")
	line.WriteString(" in " + ansiUnderline + frame.File + ":" + strconv.Itoa(frame.Line) + ansiReset + "\n")

	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}

	_, err := io.WriteString(h.Output, line.String())

	//nolint:wrapcheck
	return err
}

func writeAttrs(line *strings.Builder, prefix string, attrs []slog.Attr) {
	for _, attr := range attrs {
		if attr.Value.Kind() == slog.KindGroup {
			writeAttrs(line, prefix+attr.Key+".", attr.Value.Group())

			continue
		}

		line.WriteString(" " + prefix + attr.Key + "=" + ansiGray + attr.Value.String() + ansiReset)
	}
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) Handler {
	clone := *h
	clone.attrs = slices.Concat(h.attrs, attrs)

	return &clone
}

// WithGroup implements slog.Handler.WithGroup.
func (h *ConsoleHandler) WithGroup(name string) Handler {
	clone := *h
	clone.groups = slices.Concat(h.groups, []string{name})

	return &clone
}

// Enabled implements slog.Handler.Enabled. Records below Level are still
// passed on when some logger has a lower PkgLevels override.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	lowest := h.Level.Level()

	for _, pkgLevel := range h.PkgLevels {
		lowest = min(lowest, pkgLevel)
	}

	return level >= lowest
}
