//go:build !windows

package platform

import (
	"errors"
	"os"
)

// DeleteWhenFree removes a file. Open and running files can be unlinked
// directly here, so it never needs to defer the deletion.
func DeleteWhenFree(path string) (bool, error) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return true, nil
}
