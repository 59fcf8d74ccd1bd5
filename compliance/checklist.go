package compliance

import "sort"

// DaySet is a set of calendar days.
type DaySet map[Day]struct{}

// Add inserts d.
func (s DaySet) Add(d Day) {
	s[d] = struct{}{}
}

// Has reports whether d is in the set.
func (s DaySet) Has(d Day) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the days in ascending order.
func (s DaySet) Sorted() []Day {
	out := make([]Day, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CountWithin returns how many days of the set fall inside [from, to].
func (s DaySet) CountWithin(from, to Day) int {
	n := 0
	for d := range s {
		if d >= from && d <= to {
			n++
		}
	}
	return n
}

// Checklist maps an item name to the days it was checked at one site.
type Checklist map[string]DaySet

// Add records item as checked on d.
func (c Checklist) Add(item string, d Day) {
	set, ok := c[item]
	if !ok {
		set = DaySet{}
		c[item] = set
	}
	set.Add(d)
}

// Days returns the set for item, or nil when it was never checked.
func (c Checklist) Days(item string) DaySet {
	return c[item]
}

// Dates renders the checklist for the wire: item -> ascending YYYYMMDD strings.
func (c Checklist) Dates() map[string][]string {
	out := make(map[string][]string, len(c))
	for item, set := range c {
		days := set.Sorted()
		strs := make([]string, len(days))
		for i, d := range days {
			strs[i] = d.String()
		}
		out[item] = strs
	}
	return out
}

// BuildChecklist groups live events by item name. Tombstoned events are ignored.
func BuildChecklist(events []CheckEvent) Checklist {
	c := Checklist{}
	for _, ev := range events {
		if !ev.Live() {
			continue
		}
		c.Add(ev.ItemName, ev.OccurredOn)
	}
	return c
}
