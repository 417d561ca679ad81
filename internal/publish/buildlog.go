package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AppendBuildLog appends one timestamped line to the plain-text outcome log
// kept next to the live directory.
func AppendBuildLog(path string, now time.Time, format string, args ...any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	_, werr := fmt.Fprintf(f, "[%s] %s\n", now.Format("2006-01-02 15:04:05"), line)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}
