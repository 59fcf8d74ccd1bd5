package controllers_test

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helmet = "안전모 착용"

func toggleBody(siteID, contractID uint, name, date string) map[string]interface{} {
	return map[string]interface{}{"siteId": siteID, "contractId": contractID, "name": name, "date": date}
}

func TestToggleFlipsAndRangeReflectsState(t *testing.T) {
	s := newTestServer(t)
	c := s.seedContract("교량 보수", "20240101", "20241231")
	site := s.seedSite(c.ID, "A구역", "20240301", "20240331", 0, 0, helmet)

	for i, want := range []bool{true, false, true} {
		w := s.do(http.MethodPost, "/api/v1/checklist", toggleBody(site.ID, c.ID, helmet, "20240305"), asAdmin(s.admin))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var res struct {
			Checked bool `json:"checked"`
		}
		decode(t, w, &res)
		assert.Equal(t, want, res.Checked, "toggle #%d", i+1)
	}

	path := "/api/v1/checklist/range?siteId=" + strconv.Itoa(int(site.ID)) + "&start=20240301&end=20240305"
	w := s.do(http.MethodGet, path, nil, asAdmin(s.admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dates map[string][]string
	decode(t, w, &dates)
	assert.Equal(t, []string{"20240305"}, dates[helmet])

	// end defaults to today (20240310 in Seoul)
	w = s.do(http.MethodGet, "/api/v1/checklist/range?siteId="+strconv.Itoa(int(site.ID))+"&start=20240306", nil, asAdmin(s.admin))
	require.Equal(t, http.StatusOK, w.Code)
	dates = nil
	decode(t, w, &dates)
	assert.Empty(t, dates)
}

func TestToggleNormalisesItemName(t *testing.T) {
	s := newTestServer(t)
	c := s.seedContract("c", "20240101", "20241231")
	site := s.seedSite(c.ID, "s", "20240301", "20240331", 0, 0, helmet)

	w := s.do(http.MethodPost, "/api/v1/checklist", toggleBody(site.ID, c.ID, "  안전모   착용 ", "20240310"), asAdmin(s.admin))
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/v1/checklist/range?siteId="+strconv.Itoa(int(site.ID))+"&start=20240310", nil, asAdmin(s.admin))
	var dates map[string][]string
	decode(t, w, &dates)
	assert.Equal(t, []string{"20240310"}, dates[helmet])
}

func TestToggleValidation(t *testing.T) {
	s := newTestServer(t)
	c := s.seedContract("c", "20240101", "20241231")
	other := s.seedContract("other", "20240101", "20241231")
	site := s.seedSite(c.ID, "s", "20240301", "20240331", 0, 0, helmet)

	cases := []struct {
		name   string
		body   map[string]interface{}
		status int
		code   int
	}{
		{"bad date", toggleBody(site.ID, c.ID, helmet, "2024-03-10"), http.StatusBadRequest, 40021},
		{"impossible date", toggleBody(site.ID, c.ID, helmet, "20240230"), http.StatusBadRequest, 40021},
		{"blank name", toggleBody(site.ID, c.ID, "   ", "20240310"), http.StatusBadRequest, 40022},
		{"markup only", toggleBody(site.ID, c.ID, "<b></b>", "20240310"), http.StatusBadRequest, 40022},
		{"missing site", toggleBody(999, c.ID, helmet, "20240310"), http.StatusNotFound, 40420},
		{"wrong contract", toggleBody(site.ID, other.ID, helmet, "20240310"), http.StatusBadRequest, 40023},
		{"missing fields", map[string]interface{}{"siteId": site.ID}, http.StatusBadRequest, 40020},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v1/checklist", tc.body, asAdmin(s.admin))
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, decode(t, w, nil).Code)
		})
	}

	w := s.do(http.MethodPost, "/api/v1/checklist", toggleBody(site.ID, c.ID, helmet, "20240310"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40102, decode(t, w, nil).Code)
}

func TestRangeValidation(t *testing.T) {
	s := newTestServer(t)
	c := s.seedContract("c", "20240101", "20241231")
	site := s.seedSite(c.ID, "s", "20240301", "20240331", 0, 0, helmet)
	id := strconv.Itoa(int(site.ID))

	for path, code := range map[string]int{
		"/api/v1/checklist/range?start=20240301":                               40024,
		"/api/v1/checklist/range?siteId=" + id:                                 40021,
		"/api/v1/checklist/range?siteId=" + id + "&start=20240301&end=2024031": 40021,
		"/api/v1/checklist/range?siteId=" + id + "&start=20240305&end=20240301": 40025,
	} {
		w := s.do(http.MethodGet, path, nil, asAdmin(s.admin))
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, code, decode(t, w, nil).Code, path)
	}
}

func TestBatchMatchesPerSiteState(t *testing.T) {
	s := newTestServer(t)
	c := s.seedContract("c", "20240101", "20241231")
	a := s.seedSite(c.ID, "a", "20240301", "20240331", 0, 0, helmet)
	b := s.seedSite(c.ID, "b", "20240301", "20240331", 0, 0, helmet)

	for _, d := range []string{"20240302", "20240301"} {
		w := s.do(http.MethodPost, "/api/v1/checklist", toggleBody(a.ID, c.ID, helmet, d), asAdmin(s.admin))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	path := "/api/v1/checklist?siteIds=" + strconv.Itoa(int(b.ID)) + "," + strconv.Itoa(int(a.ID))
	w := s.do(http.MethodGet, path, nil, asAdmin(s.admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got map[string]map[string][]string
	decode(t, w, &got)
	assert.Equal(t, []string{"20240301", "20240302"}, got[strconv.Itoa(int(a.ID))][helmet])
	assert.Empty(t, got[strconv.Itoa(int(b.ID))])
	assert.Contains(t, got, strconv.Itoa(int(b.ID)))

	// a toggle invalidates the cached batch
	w = s.do(http.MethodPost, "/api/v1/checklist", toggleBody(b.ID, c.ID, helmet, "20240303"), asAdmin(s.admin))
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(http.MethodGet, path, nil, asAdmin(s.admin))
	got = nil
	decode(t, w, &got)
	assert.Equal(t, []string{"20240303"}, got[strconv.Itoa(int(b.ID))][helmet])

	w = s.do(http.MethodGet, "/api/v1/checklist?siteIds=1,x", nil, asAdmin(s.admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/api/v1/checklist?siteIds="+strconv.Itoa(int(a.ID))+",999", nil, asAdmin(s.admin))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGuestIsScopedToOwnContract(t *testing.T) {
	s := newTestServer(t)
	mine := s.seedContract("mine", "20240101", "20241231")
	theirs := s.seedContract("theirs", "20240101", "20241231")
	own := s.seedSite(mine.ID, "own", "20240301", "20240331", 0, 0, helmet)
	foreign := s.seedSite(theirs.ID, "foreign", "20240301", "20240331", 0, 0, helmet)
	guest := asGuest(t, mine.ID)

	w := s.do(http.MethodPost, "/api/v1/checklist", toggleBody(own.ID, mine.ID, helmet, "20240310"), guest)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/checklist", toggleBody(foreign.ID, theirs.ID, helmet, "20240310"), guest)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 40301, decode(t, w, nil).Code)

	w = s.do(http.MethodGet, "/api/v1/checklist?siteIds="+strconv.Itoa(int(own.ID))+","+strconv.Itoa(int(foreign.ID)), nil, guest)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/checklist/range?siteId="+strconv.Itoa(int(foreign.ID))+"&start=20240301", nil, guest)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHistoryKeepsUncheckedEvents(t *testing.T) {
	s := newTestServer(t)
	c := s.seedContract("c", "20240101", "20241231")
	site := s.seedSite(c.ID, "s", "20240301", "20240331", 0, 0, helmet)

	for i := 0; i < 3; i++ {
		w := s.do(http.MethodPost, "/api/v1/checklist", toggleBody(site.ID, c.ID, helmet, "20240310"), asAdmin(s.admin))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	path := "/api/v1/checklist/history?siteId=" + strconv.Itoa(int(site.ID))
	w := s.do(http.MethodGet, path, nil, asAdmin(s.admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var events []struct {
		Name  string `json:"name"`
		Date  string `json:"date"`
		State string `json:"state"`
	}
	decode(t, w, &events)
	require.Len(t, events, 2)
	assert.Equal(t, "tombstoned", events[0].State)
	assert.Equal(t, "live", events[1].State)
	assert.Equal(t, "20240310", events[1].Date)

	w = s.do(http.MethodGet, path, nil, asGuest(t, c.ID))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestToggleRejectsDeletedContract(t *testing.T) {
	s := newTestServer(t)
	c := s.seedContract("c", "20240101", "20241231")
	site := s.seedSite(c.ID, "s", "20240301", "20240331", 0, 0, helmet)
	guest := asGuest(t, c.ID)

	w := s.do(http.MethodPost, "/api/v1/checklist", toggleBody(site.ID, c.ID, helmet, "20240310"), guest)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodDelete, "/api/v1/contracts/"+strconv.Itoa(int(c.ID)), nil, asAdmin(s.admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/checklist", toggleBody(site.ID, c.ID, helmet, "20240311"), guest)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Equal(t, 40420, decode(t, w, nil).Code)

	w = s.do(http.MethodGet, "/api/v1/checklist/range?siteId="+strconv.Itoa(int(site.ID))+"&start=20240301", nil, guest)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	var events int64
	require.NoError(t, s.db.Table("check_events").Where("site_id = ?", site.ID).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}
