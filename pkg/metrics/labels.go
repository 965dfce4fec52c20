package metrics

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// labelValue maps an event name to a valid Prometheus label value. Bytes
// that are not valid UTF-8 are written as \xNN so that distinct names keep
// distinct labels.
func labelValue(name string) string {
	if utf8.ValidString(name) {
		return name
	}

	var b strings.Builder
	for i := 0; i < len(name); {
		r, size := utf8.DecodeRuneInString(name[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&b, `\x%02x`, name[i])
		} else {
			b.WriteString(name[i : i+size])
		}
		i += size
	}
	return b.String()
}
