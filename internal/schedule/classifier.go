package schedule

import "errors"

// Chart name prefixes for per-navigation metrics.
const (
	ColdPrefix = "cold_"
	WarmPrefix = "warm_"
)

// Classifier decides cache handling and result class for each navigation.
//
// Warm passes run before cold ones across the whole page set. That keeps any
// pre-existing profile cache alive as long as possible, and lets the load of
// one page in the transition pass warm the cache for the next page's warm run.
type Classifier struct {
	start  int
	visits *VisitCounters
}

// NewClassifier binds a schedule to a set of visit counters.
func NewClassifier(s Schedule, visits *VisitCounters) *Classifier {
	return &Classifier{start: s.ColdRunStartIndex, visits: visits}
}

// ShouldForceColdCache reports whether the cache must be cleared before the
// next navigation of page. Once true for a page it stays true.
func (c *Classifier) ShouldForceColdCache(page string) bool {
	return c.visits.Get(page) >= c.start
}

// WasThisRunCold classifies the navigation that just finished, before its
// visit is recorded. A page's first load is always cold.
func (c *Classifier) WasThisRunCold(page string) bool {
	return c.ShouldForceColdCache(page) || c.visits.Get(page) == 0
}

// ChartPrefix returns "cold_" or "warm_" for the navigation that just finished.
func (c *Classifier) ChartPrefix(page string) string {
	if c.WasThisRunCold(page) {
		return ColdPrefix
	}
	return WarmPrefix
}

// RecordVisit marks one completed navigation of page.
func (c *Classifier) RecordVisit(page string) int {
	return c.visits.Increment(page)
}

// Visits returns the completed navigation count for page.
func (c *Classifier) Visits(page string) int {
	return c.visits.Get(page)
}

// PlannedVisit is one navigation in a dry-run schedule.
type PlannedVisit struct {
	Index            int    `json:"index"`
	PageSetIteration int    `json:"pageset_iteration"`
	PageIteration    int    `json:"page_iteration"`
	Page             string `json:"page"`
	ClearCache       bool   `json:"clear_cache"`
	Cold             bool   `json:"cold"`
}

// Plan lists every navigation of a count-bounded run in order, with the
// decisions the cycler would make for it, assuming no navigation fails.
func Plan(pages []string, cfg RunConfiguration) ([]PlannedVisit, error) {
	if cfg.TimedRepeat {
		return nil, errors.New("cannot plan a timed repeat run")
	}
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}

	c := NewClassifier(s, NewVisitCounters())
	plan := make([]PlannedVisit, 0, len(pages)*cfg.PageSetRepeat*cfg.PageRepeat)
	for ps := 0; ps < cfg.PageSetRepeat; ps++ {
		for _, page := range pages {
			for pr := 0; pr < cfg.PageRepeat; pr++ {
				v := PlannedVisit{
					Index:            len(plan),
					PageSetIteration: ps,
					PageIteration:    pr,
					Page:             page,
					ClearCache:       c.ShouldForceColdCache(page),
					Cold:             c.WasThisRunCold(page),
				}
				c.RecordVisit(page)
				plan = append(plan, v)
			}
		}
	}
	return plan, nil
}
