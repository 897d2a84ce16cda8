package utils

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

var Logger *zap.Logger

// InitLogger builds the process logger; LOG_LEVEL=debug switches to the
// development config so stage transitions are visible.
func InitLogger() {
	var err error
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		Logger, err = zap.NewDevelopment()
	} else {
		Logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
}

func GetLogger() *zap.Logger {
	if Logger == nil {
		InitLogger()
	}
	return Logger
}
