// package shared defines shared helpers
package shared

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Version is reported by the version command and the /health endpoint.
const Version = "0.1.0"

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel parses a config level name, falling back to info.
func ParseLogLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_\s\-]`)
	whitespaceRuns      = regexp.MustCompile(`\s+`)
	hyphenRuns          = regexp.MustCompile(`-+`)
)

// SanitizeStem makes a list name safe to use as a file name without extension.
//
// Characters other than ASCII word characters, whitespace and hyphens become hyphens,
// whitespace runs collapse to one hyphen, and hyphen runs collapse to one.
func SanitizeStem(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "-")
	s = whitespaceRuns.ReplaceAllString(s, "-")
	return hyphenRuns.ReplaceAllString(s, "-")
}

// SanitizeFilename returns the sanitized stem of name with ".ext" appended.
func SanitizeFilename(name, ext string) string {
	return SanitizeStem(name) + "." + ext
}
