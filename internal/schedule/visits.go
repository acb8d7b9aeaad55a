package schedule

// VisitCounters counts completed navigations per page. Unseen pages read as
// zero. Counters only ever grow.
//
// Not safe for concurrent use; the cycler drives navigations one at a time.
type VisitCounters struct {
	counts map[string]int
}

// NewVisitCounters returns an empty counter set.
func NewVisitCounters() *VisitCounters {
	return &VisitCounters{counts: make(map[string]int)}
}

// Get returns the number of completed navigations of page.
func (v *VisitCounters) Get(page string) int {
	n, ok := v.counts[page]
	if !ok {
		return 0
	}
	return n
}

// Increment records one completed navigation of page and returns the new count.
func (v *VisitCounters) Increment(page string) int {
	v.counts[page]++
	return v.counts[page]
}

// Len returns the number of distinct pages seen so far.
func (v *VisitCounters) Len() int {
	return len(v.counts)
}
