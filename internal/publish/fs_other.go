//go:build !unix

package publish

import "os"

func sameFilesystem(_, _ string) (bool, error) { return true, nil }

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}
