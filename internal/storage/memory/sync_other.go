//go:build !linux

package memory

import "os"

func syncFile(f *os.File) error {
	return f.Sync()
}
