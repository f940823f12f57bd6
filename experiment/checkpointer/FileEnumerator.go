package checkpointer

import "strconv"

// FilenameEnumerator returns a function producing filename+N+extension
// for N = start+1, start+2, ... on successive calls. The extension
// includes its dot.
func FilenameEnumerator(start int, filename, extension string) func() string {
	n := start
	return func() string {
		n++
		return filename + strconv.Itoa(n) + extension
	}
}
