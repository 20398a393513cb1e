package utils

import (
	"os"
	"strconv"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	if log != nil {
		log = log.With("env_var", key)
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("Environment variable not found, using default", "default", defaultVal)
		}
		return defaultVal
	}
	return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		if log != nil {
			log.Warn("Environment variable is not an integer, using default", "env_var", key, "value", raw, "default", defaultVal)
		}
		return defaultVal
	}
	return val
}
