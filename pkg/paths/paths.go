package paths

import (
	"os"
)

// DataDirEnv overrides the detected data directory when set.
const DataDirEnv = "EPSTREAM_DATA_DIR"

// GetDataDir returns the data directory path
// If EPSTREAM_DATA_DIR is set it wins. If running in Docker (/.dockerenv exists),
// returns /app/data. Otherwise returns current directory (.)
func GetDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "/app/data"
	}
	return "."
}
