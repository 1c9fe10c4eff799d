package config

import (
	"os"
	"strconv"
	"strings"
)

// Env reads DRAWCONSOLE_<name> for the few settings needed before viper is
// set up. Blank values count as unset.
func Env(name, fallback string) string {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + "_" + name))
	if v == "" {
		return fallback
	}
	return v
}

// EnvBool is Env parsed as a boolean; unparsable values yield fallback.
func EnvBool(name string, fallback bool) bool {
	b, err := strconv.ParseBool(Env(name, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

// DebugMode reports whether DRAWCONSOLE_DEBUG asks for gin debug output.
func DebugMode() bool {
	return EnvBool("DEBUG", false)
}
