package compliance

// Site is the slice of a site the completeness predicate needs.
type Site struct {
	ID        uint
	StartDate Day
	EndDate   Day
	Checklist []string
}

// RequiredDays is the number of days every item must be checked on as of today:
// the length of [StartDate, min(today, EndDate)]. Zero or negative means the site has not started.
func RequiredDays(site Site, today Day) int {
	effectiveEnd := MinDay(today, site.EndDate)
	return effectiveEnd.DaysSince(site.StartDate) + 1
}

// IsFullyCompliant reports whether every item of the site's checklist was checked on every
// day from StartDate through min(today, EndDate). Checks outside that window do not count.
// A site that has not started, or that has no items, is compliant.
func IsFullyCompliant(site Site, checklist Checklist, today Day) bool {
	required := RequiredDays(site, today)
	if required <= 0 {
		return true
	}
	effectiveEnd := MinDay(today, site.EndDate)

	seen := make(map[string]struct{}, len(site.Checklist))
	for _, item := range site.Checklist {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}

		if checklist.Days(item).CountWithin(site.StartDate, effectiveEnd) != required {
			return false
		}
	}
	return true
}

// MissingDays lists, per item, the days in the active window that have no check. Items that
// are fully covered are omitted.
func MissingDays(site Site, checklist Checklist, today Day) map[string][]Day {
	out := map[string][]Day{}
	if RequiredDays(site, today) <= 0 {
		return out
	}
	effectiveEnd := MinDay(today, site.EndDate)
	for _, item := range site.Checklist {
		if _, done := out[item]; done {
			continue
		}
		set := checklist.Days(item)
		var missing []Day
		for d := site.StartDate; d <= effectiveEnd; d++ {
			if !set.Has(d) {
				missing = append(missing, d)
			}
		}
		if len(missing) > 0 {
			out[item] = missing
		}
	}
	return out
}
