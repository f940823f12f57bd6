package checkpointer

import (
	"fmt"
	"time"
)

// FileTimer returns a function which appends to filename the current time
// as a sortable timestamp with nanosecond precision
func FileTimer(filename, extension string) func() string {
	return fileTimer(filename, extension, time.Now)
}

func fileTimer(filename, extension string, now func() time.Time) func() string {
	return func() string {
		stamp := now().UTC().Format("20060102T150405.000000000")
		return fmt.Sprintf("%s-%s%s", filename, stamp, extension)
	}
}
