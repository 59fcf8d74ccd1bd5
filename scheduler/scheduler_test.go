package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/reports"
)

type fakeWarmer struct {
	calls  int
	report reports.Report
	err    error
}

func (f *fakeWarmer) Warm(ctx context.Context) (reports.Report, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return reports.Report{}, errors.New("sweep must run with a deadline")
	}
	return f.report, f.err
}

func TestRunOnceLogsReport(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	w := &fakeWarmer{report: reports.Report{Date: compliance.NewDay(2024, time.March, 1), Total: 3, Compliant: 2}}
	s, err := New("5 0 * * *", time.UTC, w, zap.New(core))
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Equal(t, 1, w.calls)
	entries := logs.FilterMessage("compliance sweep finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "20240301", fields["date"])
	assert.EqualValues(t, 3, fields["sites"])
	assert.EqualValues(t, 2, fields["compliant"])
}

func TestRunOnceLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	w := &fakeWarmer{err: errors.New("db down")}
	s, err := New("5 0 * * *", time.UTC, w, zap.New(core))
	require.NoError(t, err)

	s.RunOnce(context.Background())
	assert.Equal(t, 1, logs.FilterMessage("compliance sweep failed").Len())
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every night", time.UTC, &fakeWarmer{}, nil)
	assert.Error(t, err)
}

func TestNextFiresInConfiguredZone(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)
	s, err := New("5 0 * * *", kst, &fakeWarmer{}, nil)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	next := s.Next().In(kst)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 5, next.Minute())
}
