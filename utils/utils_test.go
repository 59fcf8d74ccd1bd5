package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sitesafe/safemap/config"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	os.Exit(m.Run())
}

func TestNormalizeChecklist(t *testing.T) {
	decomposed := "\u1110\u1161\u1106\u1175" // 타미 as conjoining jamo
	items, err := NormalizeChecklist([]string{
		"  TBM일지 ",
		"TBM일지",
		"안전   점검",
		"<b>안전 점검</b>",
		"x",
		strings.Repeat("가", 51),
		decomposed,
		"타미",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"TBM일지", "안전 점검", "타미"}, items)
}

func TestNormalizeChecklistRejectsTooMany(t *testing.T) {
	var items []string
	for i := 0; i < MaxChecklistItems+1; i++ {
		items = append(items, fmt.Sprintf("항목%02d", i))
	}
	_, err := NormalizeChecklist(items)
	assert.ErrorIs(t, err, ErrTooManyItems)
}

func TestNormalizeItemName(t *testing.T) {
	name, err := NormalizeItemName("  TBM\t일지 ")
	require.NoError(t, err)
	assert.Equal(t, "TBM 일지", name)

	_, err = NormalizeItemName("   ")
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = NormalizeItemName(strings.Repeat("a", MaxItemNameLength+1))
	assert.Error(t, err)
}

func TestParseUintList(t *testing.T) {
	ids, err := ParseUintList("3, 1,3,,2")
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1, 2}, ids)

	_, err = ParseUintList("1,x")
	assert.Error(t, err)
	_, err = ParseUintList("0")
	assert.Error(t, err)

	ids, err = ParseUintList("")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestTokensRoundTrip(t *testing.T) {
	admin, err := GenerateAdminToken(time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(admin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)

	guest, err := GenerateGuestToken(42, time.Hour)
	require.NoError(t, err)
	claims, err = ParseToken(guest)
	require.NoError(t, err)
	assert.Equal(t, RoleGuest, claims.Role)
	assert.Equal(t, uint(42), claims.ContractID)

	expired, err := GenerateAdminToken(-time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	_, err = ParseToken(admin + "x")
	assert.Error(t, err)
}

func TestRevokeTokenWithoutRedis(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsTokenRevoked(ctx, "tok"))
	RevokeToken(ctx, "tok", time.Now().Add(time.Hour))
	assert.True(t, IsTokenRevoked(ctx, "tok"))

	RevokeToken(ctx, "old", time.Now().Add(-time.Second))
	assert.False(t, IsTokenRevoked(ctx, "old"))
}

func TestLoginGuardWithoutRedis(t *testing.T) {
	ctx := context.Background()
	ip := "203.0.113.7"
	assert.Equal(t, 1, LoginFailRecord(ctx, ip))
	assert.Equal(t, 2, LoginFailRecord(ctx, ip))
	LoginReset(ctx, ip)
	assert.Equal(t, 1, LoginFailRecord(ctx, ip))

	assert.False(t, LoginIsBanned(ctx, ip))
	LoginBan(ctx, ip, time.Hour)
	assert.True(t, LoginIsBanned(ctx, ip))
	assert.False(t, LoginIsBanned(ctx, "203.0.113.8"))

	LoginBan(ctx, "203.0.113.9", -time.Second)
	assert.False(t, LoginIsBanned(ctx, "203.0.113.9"))
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("long enough"))
}

func TestCacheFetchJSONCollapsesConcurrentFills(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fill := func(context.Context) (interface{}, error) {
		calls.Add(1)
		<-release
		return map[string]int{"n": 1}, nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := CacheFetchJSON(context.Background(), "cache:test:collapse", time.Minute, fill)
			if err == nil {
				results[i] = string(b)
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	for _, r := range results {
		assert.JSONEq(t, `{"n":1}`, r)
	}
}

func TestCacheFetchJSONPropagatesFillError(t *testing.T) {
	boom := errors.New("boom")
	_, err := CacheFetchJSON(context.Background(), "cache:test:error", time.Minute, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCacheFetchJSONFillSurvivesCancelledCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := CacheFetchJSON(ctx, "cache:test:cancelled", time.Minute, func(fillCtx context.Context) (interface{}, error) {
		if err := fillCtx.Err(); err != nil {
			return nil, err
		}
		_, hasDeadline := fillCtx.Deadline()
		return map[string]bool{"deadline": hasDeadline}, nil
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"deadline":true}`, string(b))
}

func TestInvalidateByPrefixStartsNewGeneration(t *testing.T) {
	ctx := context.Background()
	prefix := "cache:test:gen:"
	gen := CacheGeneration(ctx, prefix)
	before := VersionedKey(ctx, prefix, "1,2")
	assert.True(t, strings.HasPrefix(before, prefix))

	started := make(chan struct{})
	release := make(chan struct{})
	staleDone := make(chan string)
	go func() {
		b, _ := CacheFetchJSON(ctx, before, time.Minute, func(context.Context) (interface{}, error) {
			close(started)
			<-release
			return "stale", nil
		})
		staleDone <- string(b)
	}()
	<-started

	InvalidateByPrefix(ctx, prefix)
	after := VersionedKey(ctx, prefix, "1,2")
	assert.NotEqual(t, before, after)
	assert.True(t, strings.HasPrefix(after, prefix))
	assert.Equal(t, gen+1, CacheGeneration(ctx, prefix))

	// a fill in flight under the old key is not shared with callers after the invalidation
	fresh, err := CacheFetchJSON(ctx, after, time.Minute, func(context.Context) (interface{}, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.JSONEq(t, `"fresh"`, string(fresh))

	close(release)
	assert.JSONEq(t, `"stale"`, <-staleDone)
}

func TestNaverMapsClientForwardsKeys(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id", r.Header.Get("x-ncp-apigw-api-key-id"))
		assert.Equal(t, "secret", r.Header.Get("x-ncp-apigw-api-key"))
		switch r.URL.Path {
		case naverGeocodePath:
			assert.Equal(t, "광주 북구", r.URL.Query().Get("query"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"OK"}`))
		case naverReverseGeocodePath:
			assert.Equal(t, "126.88,35.26", r.URL.Query().Get("coords"))
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad"}`))
		}
	}))
	defer upstream.Close()

	client := NewNaverMapsClient(upstream.URL+"/", "id", "secret", upstream.Client())
	resp, err := client.Geocode(context.Background(), "광주 북구")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"status":"OK"}`, string(resp.Body))

	resp, err = client.ReverseGeocode(context.Background(), "35.26", "126.88")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	_, err = NewNaverMapsClient(upstream.URL, "", "", nil).Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNaverKeysMissing)
}

func TestGinMiddlewareLogsAndRecovers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	r := gin.New()
	r.Use(RequestID(), Ginzap(logger, time.RFC3339, true), RecoveryWithZap(logger, false))
	r.GET("/ok", func(c *gin.Context) { Success(c, gin.H{"ok": true}) })
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":50000,"message":"internal server error"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	assert.Equal(t, 1, logs.FilterMessage("[Recovery from panic]").Len())
	access := logs.FilterMessage("/ok").All()
	require.Len(t, access, 1)
	assert.Equal(t, "abc", access[0].ContextMap()["request_id"])
}

func TestServerRunDrainsAndRunsHooks(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	srv := NewServer(ln.Addr().String(), handler, time.Second, time.Second)
	var hooks atomic.Int32
	srv.OnShutdown(func() { hooks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.EqualValues(t, 1, hooks.Load())
}
