package datastore

import "github.com/safetrack/safetrack/internal/logger"

const moduleName = "datastore"

func defaultLogger() logger.Logger {
	return logger.Global().Module(moduleName)
}
