package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func checklistOf(t *testing.T, item string, days ...string) Checklist {
	t.Helper()
	c := Checklist{}
	for _, d := range days {
		c.Add(item, mustDay(t, d))
	}
	return c
}

func TestIsFullyCompliant(t *testing.T) {
	closedSite := Site{
		StartDate: mustDay(t, "20240101"),
		EndDate:   mustDay(t, "20240103"),
		Checklist: []string{"A"},
	}
	activeSite := Site{
		StartDate: mustDay(t, "20240101"),
		EndDate:   mustDay(t, "20241231"),
		Checklist: []string{"A"},
	}

	tests := []struct {
		name      string
		site      Site
		checklist Checklist
		today     string
		want      bool
	}{
		{
			name:      "every day of a closed window checked",
			site:      closedSite,
			checklist: checklistOf(t, "A", "20240101", "20240102", "20240103"),
			today:     "20240105",
			want:      true,
		},
		{
			name:      "one day missing",
			site:      closedSite,
			checklist: checklistOf(t, "A", "20240101", "20240103"),
			today:     "20240105",
			want:      false,
		},
		{
			name:      "active site evaluated up to today",
			site:      activeSite,
			checklist: checklistOf(t, "A", "20240101", "20240102", "20240103", "20240104", "20240105"),
			today:     "20240105",
			want:      true,
		},
		{
			name:      "active site missing today",
			site:      activeSite,
			checklist: checklistOf(t, "A", "20240101", "20240102", "20240103", "20240104"),
			today:     "20240105",
			want:      false,
		},
		{
			name:      "empty checklist",
			site:      Site{StartDate: mustDay(t, "20240101"), EndDate: mustDay(t, "20240103")},
			checklist: Checklist{},
			today:     "20240105",
			want:      true,
		},
		{
			name:      "site starts in the future",
			site:      Site{StartDate: mustDay(t, "20240110"), EndDate: mustDay(t, "20240120"), Checklist: []string{"A"}},
			checklist: Checklist{},
			today:     "20240105",
			want:      true,
		},
		{
			name:      "site starts today and nothing checked",
			site:      Site{StartDate: mustDay(t, "20240105"), EndDate: mustDay(t, "20240120"), Checklist: []string{"A"}},
			checklist: Checklist{},
			today:     "20240105",
			want:      false,
		},
		{
			name:      "checks outside the window do not make up for a gap",
			site:      closedSite,
			checklist: checklistOf(t, "A", "20231231", "20240101", "20240103", "20240104"),
			today:     "20240105",
			want:      false,
		},
		{
			name: "every item must be satisfied",
			site: Site{StartDate: mustDay(t, "20240101"), EndDate: mustDay(t, "20240102"), Checklist: []string{"A", "B"}},
			checklist: func() Checklist {
				c := checklistOf(t, "A", "20240101", "20240102")
				c.Add("B", mustDay(t, "20240101"))
				return c
			}(),
			today: "20240105",
			want:  false,
		},
		{
			name:      "duplicate item names are treated as one",
			site:      Site{StartDate: mustDay(t, "20240101"), EndDate: mustDay(t, "20240102"), Checklist: []string{"A", "A"}},
			checklist: checklistOf(t, "A", "20240101", "20240102"),
			today:     "20240105",
			want:      true,
		},
		{
			name:      "item never checked",
			site:      closedSite,
			checklist: nil,
			today:     "20240105",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFullyCompliant(tt.site, tt.checklist, mustDay(t, tt.today)))
		})
	}
}

func TestRequiredDays(t *testing.T) {
	site := Site{StartDate: mustDay(t, "20240101"), EndDate: mustDay(t, "20240103")}
	assert.Equal(t, 3, RequiredDays(site, mustDay(t, "20240105")))
	assert.Equal(t, 2, RequiredDays(site, mustDay(t, "20240102")))
	assert.Equal(t, 1, RequiredDays(site, mustDay(t, "20240101")))
	assert.Equal(t, 0, RequiredDays(site, mustDay(t, "20231231")))
	assert.Equal(t, -3, RequiredDays(site, mustDay(t, "20231228")))

	site.Checklist = []string{"A"}
	assert.True(t, IsFullyCompliant(site, Checklist{}, mustDay(t, "20231228")))
}

func TestMissingDays(t *testing.T) {
	site := Site{
		StartDate: mustDay(t, "20240101"),
		EndDate:   mustDay(t, "20240103"),
		Checklist: []string{"A", "B"},
	}
	c := checklistOf(t, "A", "20240101", "20240102", "20240103")
	c.Add("B", mustDay(t, "20240102"))

	missing := MissingDays(site, c, mustDay(t, "20240110"))
	assert.NotContains(t, missing, "A")
	assert.Equal(t, []Day{mustDay(t, "20240101"), mustDay(t, "20240103")}, missing["B"])

	assert.Empty(t, MissingDays(site, Checklist{}, mustDay(t, "20231201")))
}
