package config

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go.viam.com/multiview/logging"
)

var globalLogger struct {
	// These variables are initialized once at startup. No need for special synchronization.
	logger           logging.Logger
	cmdLineDebugFlag bool

	mu               sync.Mutex
	jobFileDebugFlag bool
}

// InitLoggingSettings initializes the global logging settings.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.logger = logger
	globalLogger.cmdLineDebugFlag = cmdLineDebugFlag
	globalLogger.jobFileDebugFlag = false
	if cmdLineDebugFlag {
		logging.GlobalLogLevel.SetLevel(zapcore.DebugLevel)
		logger.SetLevel(logging.DEBUG)
	} else {
		logging.GlobalLogLevel.SetLevel(zapcore.InfoLevel)
		logger.SetLevel(logging.INFO)
	}
	logger.Debug("Log level initialized: ", logging.GlobalLogLevel.Level())
}

// UpdateJobFileDebug is used to update the debug flag once a job file has been read.
func UpdateJobFileDebug(fileDebug bool) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()

	globalLogger.jobFileDebugFlag = fileDebug
	refreshLogLevelInLock()
}

func refreshLogLevelInLock() {
	var newLevel zapcore.Level
	if globalLogger.cmdLineDebugFlag || globalLogger.jobFileDebugFlag {
		newLevel = zap.DebugLevel
	} else {
		newLevel = zap.InfoLevel
	}

	if logging.GlobalLogLevel.Level() == newLevel {
		return
	}
	logging.GlobalLogLevel.SetLevel(newLevel)
	if globalLogger.logger == nil {
		return
	}
	if newLevel == zap.DebugLevel {
		globalLogger.logger.SetLevel(logging.DEBUG)
	} else {
		globalLogger.logger.SetLevel(logging.INFO)
	}
	globalLogger.logger.Info("New log level: ", newLevel)
}
