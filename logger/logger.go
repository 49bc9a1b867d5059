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

	"github.com/mensylisir/nodeforge/common"
)

// Log is the global logger instance.
var Log *NFLog

// NFLog wraps *logrus.Logger for application-specific logging.
type NFLog struct {
	*logrus.Logger
}

func init() {
	// A console-only logger is always available; InitGlobalLogger upgrades it
	// with file rotation once the work dir is known.
	if err := InitGlobalLogger("", false, logrus.InfoLevel); err != nil {
		panic(fmt.Sprintf("failed to initialize fallback logger: %v", err))
	}
}

// InitGlobalLogger initializes the global Log variable. When outputPath is
// non-empty, entries are mirrored to a daily-rotated file under that directory.
func InitGlobalLogger(outputPath string, verbose bool, defaultLevel logrus.Level) error {
	logger := logrus.New()

	currentLogLevel := defaultLevel
	if verbose {
		currentLogLevel = logrus.DebugLevel
	}
	logger.SetLevel(currentLogLevel)
	logger.SetReportCaller(true)

	formatterDisplayLevelConfig := ShowAboveWarn
	if verbose {
		formatterDisplayLevelConfig = ShowAll
	}

	defaultFieldsOrder := []string{
		common.LogFieldRunID, common.LogFieldHost, common.LogFieldStepName, common.LogFieldAttempt,
	}

	if outputPath != "" {
		if err := os.MkdirAll(outputPath, 0755); err != nil {
			return fmt.Errorf("failed to create log output directory %s: %w", outputPath, err)
		}
		logFilePath := filepath.Join(outputPath, common.AppName+".log")

		writer, err := rotatelogs.New(
			logFilePath+".%Y%m%d", // Daily rotation
			rotatelogs.WithLinkName(logFilePath),
			rotatelogs.WithMaxAge(7*24*time.Hour),
			rotatelogs.WithRotationTime(24*time.Hour),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize rotatelogs for %s: %w", logFilePath, err)
		}

		fileFormatter := &Formatter{
			TimestampFormat:        "2006-01-02 15:04:05.000 MST",
			NoColors:               true,
			DisplayLevelName:       formatterDisplayLevelConfig,
			FieldsDisplayWithOrder: defaultFieldsOrder,
			FieldSeparator:         " | ",
			DisableCaller:          false,
			CustomCallerFormatter: func(frame *runtime.Frame) string {
				return fmt.Sprintf(" [%s:%d %s]", filepath.Base(frame.File), frame.Line, filepath.Base(frame.Function))
			},
		}
		logger.SetFormatter(fileFormatter)

		logWriters := lfshook.WriterMap{}
		for _, level := range logrus.AllLevels {
			if logger.IsLevelEnabled(level) {
				logWriters[level] = writer
			}
		}
		if len(logWriters) > 0 {
			logger.Hooks.Add(lfshook.NewHook(logWriters, fileFormatter))
			// The hook owns the file; the default stream would duplicate every line.
			logger.SetOutput(io.Discard)
		}
	} else {
		consoleFormatter := &Formatter{
			TimestampFormat:        "15:04:05",
			NoColors:               false,
			DisplayLevelName:       formatterDisplayLevelConfig,
			DisableCaller:          true, // Caller info too verbose for console
			FieldsDisplayWithOrder: defaultFieldsOrder,
		}
		logger.SetFormatter(consoleFormatter)
		logger.SetOutput(os.Stdout)
	}

	Log = &NFLog{
		Logger: logger,
	}
	return nil
}

// NewNFLog creates a standalone logger instance without touching the global one.
func NewNFLog(verbose bool, defaultLevel logrus.Level) *NFLog {
	logger := logrus.New()
	currentLogLevel := defaultLevel
	if verbose {
		currentLogLevel = logrus.DebugLevel
	}
	logger.SetLevel(currentLogLevel)

	displayLevel := ShowAboveWarn
	if verbose {
		displayLevel = ShowAll
	}
	logger.SetFormatter(&Formatter{
		TimestampFormat:  "15:04:05",
		NoColors:         false,
		DisplayLevelName: displayLevel,
		DisableCaller:    true,
		FieldsDisplayWithOrder: []string{
			common.LogFieldRunID, common.LogFieldHost, common.LogFieldStepName, common.LogFieldAttempt,
		},
	})
	logger.SetOutput(os.Stdout)

	return &NFLog{Logger: logger}
}
