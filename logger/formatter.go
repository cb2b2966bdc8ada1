package logger

import (
	"bytes"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimestampFormat = time.RFC3339

// Formatter implements logrus.Formatter with ordered testbed fields.
type Formatter struct {
	// TimestampFormat specifies the format of the timestamp. Default: time.RFC3339.
	TimestampFormat string
	// NoColors disables colorized level names.
	NoColors bool
	// DisableTimestamp disables timestamp output.
	DisableTimestamp bool
	// ShowAllLevels prints the level name on every line; otherwise only
	// warn and above are tagged.
	ShowAllLevels bool
	// FieldsDisplayWithOrder lists field keys to display first, in order.
	// Remaining fields are appended alphabetically.
	FieldsDisplayWithOrder []string
	// DisableCaller disables caller information output.
	DisableCaller bool
	// CustomCallerFormatter overrides the default caller rendering.
	CustomCallerFormatter func(*runtime.Frame) string
}

// Format renders one log entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	if !f.DisableTimestamp {
		format := f.TimestampFormat
		if format == "" {
			format = defaultTimestampFormat
		}
		b.WriteString(entry.Time.Format(format))
		b.WriteString(" ")
	}

	if f.ShowAllLevels || entry.Level <= logrus.WarnLevel {
		f.writeLevel(b, entry.Level)
	}

	if len(entry.Data) > 0 {
		b.WriteString("[")
		f.writeFields(b, entry)
		b.WriteString("] ")
	}

	b.WriteString(strings.TrimSuffix(entry.Message, "\n"))

	if !f.DisableCaller && entry.HasCaller() {
		if f.CustomCallerFormatter != nil {
			b.WriteString(f.CustomCallerFormatter(entry.Caller))
		} else {
			fmt.Fprintf(b, " (%s:%d)", entry.Caller.File, entry.Caller.Line)
		}
	}

	b.WriteString("\n")
	return b.Bytes(), nil
}

func (f *Formatter) writeLevel(b *bytes.Buffer, level logrus.Level) {
	name := strings.ToUpper(level.String())
	if len(name) > 4 {
		name = name[:4]
	}
	if f.NoColors {
		fmt.Fprintf(b, "[%s] ", name)
		return
	}
	fmt.Fprintf(b, "\x1b[%dm[%s]\x1b[0m ", colorByLevel(level), name)
}

func (f *Formatter) writeFields(b *bytes.Buffer, entry *logrus.Entry) {
	written := make(map[string]bool, len(entry.Data))
	parts := make([]string, 0, len(entry.Data))

	for _, key := range f.FieldsDisplayWithOrder {
		if value, ok := entry.Data[key]; ok {
			parts = append(parts, fmt.Sprintf("%s:%v", key, value))
			written[key] = true
		}
	}

	rest := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if !written[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		parts = append(parts, fmt.Sprintf("%s:%v", key, entry.Data[key]))
	}

	b.WriteString(strings.Join(parts, " | "))
}

func colorByLevel(level logrus.Level) int {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return 37 // gray
	case logrus.WarnLevel:
		return 33 // yellow
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return 31 // red
	default:
		return 36 // cyan
	}
}
