// ABOUTME: Windowing of sorted result lists
// ABOUTME: Starting index and requested count as in a browse request

package sortcrit

// Page returns records[start:start+count]. A count of zero or less returns
// everything from start; a start past the end returns an empty slice.
func Page[T any](records []T, start, count int) []T {
	if start < 0 {
		start = 0
	}
	if start >= len(records) {
		return []T{}
	}
	end := len(records)
	if count > 0 && count < end-start {
		end = start + count
	}
	return records[start:end]
}
