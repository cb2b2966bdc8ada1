package file

import (
	"fmt"
	"os"

	"github.com/moselab/netbed/common"
)

// PathExists checks if a path exists. It distinguishes "not exist" from
// other stat errors: only the latter are returned.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CreateDir creates a directory and all its parents if they don't exist.
func CreateDir(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("path %s exists but is not a directory", path)
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(path, common.FileMode0755)
	}

	return fmt.Errorf("failed to check directory %s: %w", path, err)
}

// IsDir checks if the given path is an existing directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
