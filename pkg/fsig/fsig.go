// Package fsig computes file-change signatures. Two signatures compare equal
// exactly when the file's modification time and size are unchanged; file
// contents are never hashed.
package fsig

import (
	"fmt"
	"os"
)

// Of returns the signature of the file at path, formatted as
// "<mtime ns hex>.<size hex>". ok is false if the file cannot be stat'd.
func Of(path string) (sig string, ok bool) {
	if path == "" {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	return Format(info.ModTime().UnixNano(), info.Size()), true
}

// Format builds a signature from a modification time and size.
func Format(mtimeNanos, size int64) string {
	return fmt.Sprintf("%x.%x", mtimeNanos, size)
}
