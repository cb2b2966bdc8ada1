package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/moselab/netbed/common"
)

// Log is the process-wide default logger, used by the CLI entrypoint.
// Executors and testbed components never reach for it directly: they are
// handed an explicit *logrus.Entry at construction time so their logging
// destination has the same lifetime they do.
var Log *NBLog

func init() {
	// A console-only default so early callers always have a logger;
	// the CLI reconfigures it via Init once flags are parsed.
	l, _ := New("", false, logrus.InfoLevel)
	Log = l
}

// NBLog wraps logrus.Logger with the testbed formatter wired in.
type NBLog struct {
	*logrus.Logger
}

// Init reconfigures the global Log. outputPath, if non-empty, is a directory
// that receives a rotated netbed.log alongside console output suppression.
func Init(outputPath string, verbose bool, level logrus.Level) error {
	l, err := New(outputPath, verbose, level)
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// New builds a logger instance. With an outputPath the logger writes to a
// daily-rotated file under that directory through an lfshook hook; without
// one it writes colorized lines to stdout.
func New(outputPath string, verbose bool, level logrus.Level) (*NBLog, error) {
	l := logrus.New()

	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetReportCaller(true)

	fieldOrder := []string{
		common.LogFieldTestbed, common.LogFieldNode, common.LogFieldExecutor,
		common.LogFieldCommand, common.LogFieldStream,
	}

	if outputPath != "" {
		if err := os.MkdirAll(outputPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
		}
		logFilePath := filepath.Join(outputPath, common.AppName+".log")

		writer, err := rotatelogs.New(
			logFilePath+".%Y%m%d",
			rotatelogs.WithLinkName(logFilePath),
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
		}

		fileFormatter := &Formatter{
			TimestampFormat:        "2006-01-02 15:04:05.000 MST",
			NoColors:               true,
			ShowAllLevels:          verbose,
			FieldsDisplayWithOrder: fieldOrder,
			CustomCallerFormatter: func(frame *runtime.Frame) string {
				return fmt.Sprintf(" [%s:%d]", filepath.Base(frame.File), frame.Line)
			},
		}
		l.SetFormatter(fileFormatter)

		writers := lfshook.WriterMap{}
		for _, lvl := range logrus.AllLevels {
			if l.IsLevelEnabled(lvl) {
				writers[lvl] = writer
			}
		}
		l.Hooks.Add(lfshook.NewHook(writers, fileFormatter))
		// File output is owned by the hook; discard the default stream so
		// lines are not duplicated.
		l.SetOutput(io.Discard)
	} else {
		l.SetFormatter(&Formatter{
			TimestampFormat:        "15:04:05",
			ShowAllLevels:          verbose,
			FieldsDisplayWithOrder: fieldOrder,
			DisableCaller:          true,
		})
		l.SetOutput(os.Stdout)
	}

	return &NBLog{Logger: l}, nil
}
