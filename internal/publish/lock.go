package publish

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrLockHeld is returned when another build holds the lock marker.
var ErrLockHeld = errors.New("build lock already held")

// LockInfo is the content of the lock marker.
type LockInfo struct {
	PID     int
	Time    time.Time
	BuildID string
}

func (i LockInfo) String() string {
	s := fmt.Sprintf("pid=%d time=%s", i.PID, i.Time.UTC().Format(time.RFC3339))
	if i.BuildID != "" {
		s += " build=" + i.BuildID
	}
	return s
}

// ParseLockInfo reads a marker written by LockInfo.String. Unknown or
// malformed fields are ignored.
func ParseLockInfo(s string) LockInfo {
	var info LockInfo
	for _, field := range strings.Fields(s) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch k {
		case "pid":
			info.PID, _ = strconv.Atoi(v)
		case "time":
			info.Time, _ = time.Parse(time.RFC3339, v)
		case "build":
			info.BuildID = v
		}
	}
	return info
}

// Lock is a held lock marker.
type Lock struct {
	path string
	info LockInfo
}

// AcquireLock exclusively creates the marker at path. An existing marker
// yields ErrLockHeld; it is never waited on or retried.
func AcquireLock(path string, info LockInfo) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, path)
		}
		return nil, fmt.Errorf("create lock %s: %w", path, err)
	}
	_, werr := f.WriteString(info.String() + "\n")
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock %s: %w", path, errors.Join(werr, cerr))
	}
	return &Lock{path: path, info: info}, nil
}

// Path returns the marker location.
func (l *Lock) Path() string { return l.path }

// Info returns what was written into the marker.
func (l *Lock) Info() LockInfo { return l.info }

// Release removes the marker. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	path := l.path
	l.path = ""
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", path, err)
	}
	return nil
}

// ReadLock returns the marker content and modification time.
func ReadLock(path string) (LockInfo, time.Time, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LockInfo{}, time.Time{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return LockInfo{}, time.Time{}, err
	}
	return ParseLockInfo(string(data)), st.ModTime(), nil
}
