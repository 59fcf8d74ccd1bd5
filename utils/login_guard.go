package utils

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Failed admin logins are counted per IP in hourly buckets; reaching the limit bans the IP.

func loginKey(parts ...string) string {
	return "login:" + strings.Join(parts, ":")
}

type memCounter struct {
	n       int
	expires time.Time
}

var (
	loginMu       sync.Mutex
	loginFailures = map[string]memCounter{}
	loginBans     = map[string]time.Time{}
)

// LoginFailRecord increments the failure count of ip for the current hour and returns it.
func LoginFailRecord(ctx context.Context, ip string) int {
	now := time.Now()
	key := loginKey("failhour", ip, now.Format("2006010215"))
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		if n, err := cli.Incr(ctx, key).Result(); err == nil {
			_ = cli.Expire(ctx, key, time.Hour).Err()
			return int(n)
		}
	}

	loginMu.Lock()
	defer loginMu.Unlock()
	for k, c := range loginFailures {
		if now.After(c.expires) {
			delete(loginFailures, k)
		}
	}
	c := loginFailures[key]
	c.n++
	c.expires = now.Add(time.Hour)
	loginFailures[key] = c
	return c.n
}

// LoginIsBanned checks the temporary ban status of ip.
func LoginIsBanned(ctx context.Context, ip string) bool {
	key := loginKey("ban", ip)
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		exists, err := cli.Exists(ctx, key).Result()
		if err == nil {
			return exists > 0
		}
		Sugar.Warnw("login ban lookup failed", "error", err)
	}

	loginMu.Lock()
	defer loginMu.Unlock()
	until, ok := loginBans[key]
	if ok && time.Now().After(until) {
		delete(loginBans, key)
		return false
	}
	return ok
}

// LoginBan bans ip for d.
func LoginBan(ctx context.Context, ip string, d time.Duration) {
	key := loginKey("ban", ip)
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		if err := cli.Set(ctx, key, "1", d).Err(); err == nil {
			return
		}
	}
	loginMu.Lock()
	loginBans[key] = time.Now().Add(d)
	loginMu.Unlock()
}

// LoginReset clears the current failure bucket of ip after a successful login.
func LoginReset(ctx context.Context, ip string) {
	key := loginKey("failhour", ip, time.Now().Format("2006010215"))
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		_ = cli.Del(ctx, key).Err()
	}
	loginMu.Lock()
	delete(loginFailures, key)
	loginMu.Unlock()
}
