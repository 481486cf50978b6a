package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	ErrNotFound         = errors.New("environment variable with key not found")
	ErrConversionFailed = errors.New("failed to convert environment variable with key to value")
)

func errConversionFailed(key string, typeName string) error {
	return fmt.Errorf("key: %s type: %s: %w", key, typeName, ErrConversionFailed)
}

func getString(key string, def string) string {
	if val, found := os.LookupEnv(key); found && val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) (int, error) {
	val, found := os.LookupEnv(key)
	if !found || val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errConversionFailed(key, "int")
	}
	return n, nil
}

// getDuration 接受 "3s" 这类写法，也接受纯数字（毫秒）
func getDuration(key string, def time.Duration) (time.Duration, error) {
	val, found := os.LookupEnv(key)
	if !found || val == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, errConversionFailed(key, "duration")
	}
	return d, nil
}

func getBool(key string, def bool) (bool, error) {
	val, found := os.LookupEnv(key)
	if !found || val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errConversionFailed(key, "bool")
	}
	return b, nil
}
