package flatten

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"

	"nestcss/archive"
)

// isArchiveFile checks if file has ".zip" extension and its header looks like
// zip archive.
func isArchiveFile(path string) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// filetype needs at most 262 bytes to detect any known type
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}

// isSourceFile checks if file name has one of configured source extensions.
// Content is not looked at, anything could be a stylesheet.
func isSourceFile(path string, exts []string) bool {
	return archive.HasExtension(filepath.Base(path), exts)
}
