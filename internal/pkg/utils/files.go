package utils

import (
	"os"

	"github.com/spf13/afero"
)

// FileExists checks if a file exists and is not a directory before we
// try using it to prevent further errors
func FileExists(filename string) bool {
	return FileExistsFs(afero.NewOsFs(), filename)
}

// FileExistsFs is FileExists on an arbitrary afero filesystem.
func FileExistsFs(fs afero.Fs, filename string) bool {
	info, err := fs.Stat(filename)
	if os.IsNotExist(err) || err != nil {
		return false
	}
	return !info.IsDir()
}
