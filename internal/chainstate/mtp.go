package chainstate

import "sort"

// mtpWindow is the number of trailing timestamps the median-time-past rule
// considers.
const mtpWindow = 11

// MedianTimePast returns the median of the given timestamps (oldest-first,
// at most mtpWindow entries). The result is used as the lower bound a new
// block's own timestamp must exceed, which defeats miners backdating
// timestamps one block at a time.
func MedianTimePast(timestamps []uint32) uint32 {
	if len(timestamps) == 0 {
		return 0
	}
	sorted := make([]uint32, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)/2]
}
