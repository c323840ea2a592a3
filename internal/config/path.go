package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/purse/internal/common"
)

// ExpandPath resolves $VAR references and then a leading ~ in a storage or
// config path, so values from .env files such as PURSE_STORAGE_DATA_DIR=~/purse work.
// "~user" forms are left untouched.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)

	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && !os.IsPathSeparator(rest[0])) {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		common.LogWarn("Home directory unavailable, path left as written", common.Fields{
			"path":  path,
			"error": err,
		})
		return path
	}
	return filepath.Join(home, rest)
}
