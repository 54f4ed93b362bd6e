package humanize

import "fmt"

func Size(i int64) (float64, string) {
	switch {
	case i < 1024:
		return float64(i), "B"
	case i < 1024*1024:
		return float64(i) / 1024, "KB"
	case i < 1024*1024*1024:
		return float64(i) / (1024 * 1024), "MB"
	default:
		return float64(i) / (1024 * 1024 * 1024), "GB"
	}
}

// Bytes formats i for messages, e.g. "131.20MB". Negative sizes are
// unknown sizes.
func Bytes(i int64) string {
	if i < 0 {
		return "unknown size"
	}

	sz, unit := Size(i)

	return fmt.Sprintf("%.2f%s", sz, unit)
}
