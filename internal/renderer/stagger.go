package renderer

// StaggerWindow returns the progress window asset i of n animates in.
// Windows start 70% of a slot apart so consecutive assets overlap slightly,
// and all of them fit inside [0.1, 0.9].
func StaggerWindow(i, n int) (start, end float64) {
	if n <= 0 {
		return 0.1, 0.9
	}
	slot := 0.8 / float64(n)
	start = 0.1 + float64(i)*slot*0.7
	return start, start + slot
}

// StaggeredProgress maps scene progress to asset i's local progress.
// ok is false while the asset's window has not opened yet.
func StaggeredProgress(progress float64, i, n int) (local float64, ok bool) {
	start, end := StaggerWindow(i, n)
	switch {
	case progress < start:
		return 0, false
	case progress >= end:
		return 1, true
	default:
		return (progress - start) / (end - start), true
	}
}
