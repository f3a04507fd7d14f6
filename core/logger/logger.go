package logger

import (
	"os"
	"sync"

	"github.com/op/go-logging"
)

// ModuleName is the go-logging module every chaincode log line is tagged with.
const ModuleName = "crowdfund"

const defaultFormatStr = "%{color}%{time:2006-01-02 15:04:05.000 MST} [%{module}] %{shortfunc} -> %{level:.4s} %{id:03x}%{color:reset} %{message}"

var (
	lg   *logging.Logger
	once sync.Once
)

// Logger returns the logger for chaincode. Format and level come from the
// peer-provided CORE_CHAINCODE_LOGGING_FORMAT and CORE_CHAINCODE_LOGGING_LEVEL.
func Logger() *logging.Logger {
	once.Do(func() {
		lg = logging.MustGetLogger(ModuleName)
		format := defaultChaincodeLoggingFormat()
		if formatStr := os.Getenv("CORE_CHAINCODE_LOGGING_FORMAT"); formatStr != "" {
			if f, err := logging.NewStringFormatter(formatStr); err == nil {
				format = f
			}
		}
		stderr := logging.NewLogBackend(os.Stderr, "", 0)
		formatted := logging.NewBackendFormatter(stderr, format)
		leveled := logging.AddModuleLevel(formatted)
		leveled.SetLevel(levelFromEnv(), "")
		lg.SetBackend(leveled)
	})
	return lg
}

func levelFromEnv() logging.Level {
	levelStr := os.Getenv("CORE_CHAINCODE_LOGGING_LEVEL")
	if levelStr == "" {
		return logging.WARNING
	}
	level, err := logging.LogLevel(levelStr)
	if err != nil {
		return logging.WARNING
	}
	return level
}

func defaultChaincodeLoggingFormat() logging.Formatter {
	format, err := logging.NewStringFormatter(defaultFormatStr)
	if err != nil {
		format = logging.DefaultFormatter
	}
	return format
}
