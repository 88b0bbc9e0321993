// Package env reads the few process environment overrides that sit
// outside the structured configuration, such as the log output format.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the given environment variable, or
// the fallback when the variable is unset or blank.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if val = strings.TrimSpace(val); val == "" {
		return fallback
	}
	return val
}
