package session

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlens/fairlens-go/internal/conf"
	"github.com/fairlens/fairlens-go/internal/datastore"
	"github.com/fairlens/fairlens-go/internal/detection"
	"github.com/fairlens/fairlens-go/internal/errors"
	"github.com/fairlens/fairlens-go/internal/feedback"
	"github.com/fairlens/fairlens-go/internal/memory"
	"github.com/fairlens/fairlens-go/internal/scorer"
)

// engineSettings returns settings with intervals short enough for tests.
func engineSettings() *conf.Settings {
	return &conf.Settings{
		Realtime: conf.RealtimeSettings{
			Monitor: conf.MonitorSettings{
				Interval:   20 * time.Millisecond,
				WindowSize: 2,
			},
			Analysis: conf.AnalysisSettings{
				Interval:      60 * time.Millisecond,
				PollInterval:  10 * time.Millisecond,
				MaxConcurrent: 2,
				FastPathSize:  3,
				BufferSize:    10,
				StopGrace:     2 * time.Second,
			},
			Detection: conf.DetectionSettings{
				WarningThreshold: 0.3,
				ThresholdMin:     0.1,
				ThresholdMax:     0.5,
				LearningRate:     0.1,
				MinAdjustment:    0.01,
			},
			QueueSize: 64,
		},
	}
}

func quietQuick() scorer.QuickScorer {
	return scorer.QuickFunc(func(context.Context, string) (float64, error) {
		return 0.05, nil
	})
}

func quietComprehensive() scorer.ComprehensiveScorer {
	return scorer.ComprehensiveFunc(func(context.Context, scorer.Snapshot) (scorer.Result, error) {
		return scorer.Result{Score: 0.1, AlertLevel: detection.LevelLow, Confidence: 0.9}, nil
	})
}

func newTestEngine(t *testing.T, quick scorer.QuickScorer, comprehensive scorer.ComprehensiveScorer, mutate func(*conf.Settings)) *Registry {
	t.Helper()
	settings := engineSettings()
	if mutate != nil {
		mutate(settings)
	}

	config := detection.NewConfig(&settings.Realtime.Detection)
	queue := memory.NewUpdateQueue(settings.Realtime.QueueSize, &datastore.NoopStore{}, nil)
	dispatcher := detection.NewDispatcher(nil)
	fb := feedback.NewProcessor(&settings.Realtime.Detection, config, queue, nil)

	r := NewRegistry(Options{
		Settings:      settings,
		Quick:         quick,
		Comprehensive: comprehensive,
		Config:        config,
		Dispatcher:    dispatcher,
		Queue:         queue,
		Feedback:      fb,
		Metrics:       nil,
	})
	t.Cleanup(func() {
		r.Shutdown()
		_ = queue.Shutdown(time.Second)
	})
	return r
}

func ingestN(r *Registry, id string, n int) {
	for i := 0; i < n; i++ {
		r.Ingest(id, Chunk{Speaker: "user", Content: "neutral content " + strconv.Itoa(i)})
	}
}

func TestStartDuplicateSession(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	_, err := r.Start("s-1", "owner", nil)
	require.NoError(t, err)

	_, err = r.Start("s-1", "owner", nil)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
}

func TestStartEmptyID(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	_, err := r.Start("", "owner", nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestStopUnknownSession(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	_, err := r.Stop("nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestStopIsIdempotentSafe(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	_, err := r.Start("s-1", "owner", nil)
	require.NoError(t, err)

	_, err = r.Stop("s-1")
	require.NoError(t, err)

	_, err = r.Stop("s-1")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Zero(t, r.ActiveCount())
}

func TestIngestUnknownSessionIsSilent(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	// Must not panic or surface anything.
	r.Ingest("ghost", Chunk{Content: "hello"})
}

func TestNeutralContentRecordsScoreWithoutAlerts(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	s, err := r.Start("s-1", "owner", nil)
	require.NoError(t, err)
	ingestN(r, "s-1", 10)

	require.Eventually(t, func() bool {
		return len(s.ScoreHistory()) >= 1
	}, 2*time.Second, 10*time.Millisecond, "one analysis lands after the interval elapses")

	assert.Empty(t, s.AlertHistory(), "neutral content raises no alerts")
	for _, score := range s.ScoreHistory() {
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestQuickMonitorRaisesAlert(t *testing.T) {
	hot := scorer.QuickFunc(func(context.Context, string) (float64, error) {
		return 0.9, nil
	})
	r := newTestEngine(t, hot, quietComprehensive(), nil)

	s, err := r.Start("s-2", "owner", nil)
	require.NoError(t, err)
	ingestN(r, "s-2", 3)

	require.Eventually(t, func() bool {
		return len(s.AlertHistory()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	alert := s.AlertHistory()[0]
	assert.Equal(t, detection.SourceQuick, alert.Source)
	assert.Equal(t, detection.LevelCritical, alert.Level)
	assert.InDelta(t, 0.9, alert.Score, 0.0001)
}

func TestQuickScorerFailureTreatedAsZero(t *testing.T) {
	failing := scorer.QuickFunc(func(context.Context, string) (float64, error) {
		return 0, errors.Newf("scorer offline").Build()
	})
	r := newTestEngine(t, failing, quietComprehensive(), nil)

	s, err := r.Start("s-3", "owner", nil)
	require.NoError(t, err)
	ingestN(r, "s-3", 5)

	// Let several monitor ticks pass; the loop must survive and never alert.
	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, s.AlertHistory())

	_, err = r.Stop("s-3")
	require.NoError(t, err)
}

func TestSchedulerHonorsInterval(t *testing.T) {
	var mu sync.Mutex
	var starts []time.Time
	comp := scorer.ComprehensiveFunc(func(context.Context, scorer.Snapshot) (scorer.Result, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		return scorer.Result{Score: 0.2, AlertLevel: detection.LevelLow}, nil
	})
	r := newTestEngine(t, quietQuick(), comp, nil)

	_, err := r.Start("s-4", "owner", nil)
	require.NoError(t, err)
	ingestN(r, "s-4", 5)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(starts) >= 3
	}, 3*time.Second, 10*time.Millisecond)

	_, err = r.Stop("s-4")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	interval := engineSettings().Realtime.Analysis.Interval
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond,
			"two analyses must never start within one analysis interval")
	}
}

func TestSchedulerBacksOffOnScorerFailure(t *testing.T) {
	var calls atomic.Int32
	failing := scorer.ComprehensiveFunc(func(context.Context, scorer.Snapshot) (scorer.Result, error) {
		calls.Add(1)
		return scorer.Result{}, errors.Newf("model overloaded").Build()
	})
	r := newTestEngine(t, quietQuick(), failing, nil)

	s, err := r.Start("s-5", "owner", nil)
	require.NoError(t, err)
	ingestN(r, "s-5", 5)

	// Over ~3 intervals a backoff of one full interval per failure allows
	// at most a couple of attempts, not a busy loop.
	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), int32(3))
	assert.Empty(t, s.ScoreHistory(), "failed analyses record nothing")

	_, err = r.Stop("s-5")
	require.NoError(t, err)
}

func TestGateBoundsAnalysesAcrossSessions(t *testing.T) {
	var inFlight, peak atomic.Int64
	slow := scorer.ComprehensiveFunc(func(ctx context.Context, _ scorer.Snapshot) (scorer.Result, error) {
		cur := inFlight.Add(1)
		if cur > peak.Load() {
			peak.Store(cur)
		}
		defer inFlight.Add(-1)
		select {
		case <-time.After(80 * time.Millisecond):
		case <-ctx.Done():
		}
		return scorer.Result{Score: 0.2, AlertLevel: detection.LevelLow}, nil
	})
	r := newTestEngine(t, quietQuick(), slow, func(s *conf.Settings) {
		s.Realtime.Analysis.MaxConcurrent = 1
		s.Realtime.Analysis.Interval = 30 * time.Millisecond
	})

	for i := 0; i < 3; i++ {
		id := "s-" + strconv.Itoa(i)
		_, err := r.Start(id, "owner", nil)
		require.NoError(t, err)
		ingestN(r, id, 5)
	}

	require.Eventually(t, func() bool {
		done := 0
		for i := 0; i < 3; i++ {
			s, err := r.Get("s-" + strconv.Itoa(i))
			if err == nil && len(s.ScoreHistory()) >= 1 {
				done++
			}
		}
		return done == 3
	}, 5*time.Second, 20*time.Millisecond, "every session eventually gets a slot")

	assert.Equal(t, int64(1), peak.Load(), "never more than max_concurrent analyses in flight")
}

func TestAnalysisAlertRecordedFromScorerLevel(t *testing.T) {
	comp := scorer.ComprehensiveFunc(func(context.Context, scorer.Snapshot) (scorer.Result, error) {
		return scorer.Result{Score: 0.75, AlertLevel: detection.LevelHigh, Confidence: 0.8}, nil
	})
	r := newTestEngine(t, quietQuick(), comp, nil)

	s, err := r.Start("s-6", "owner", nil)
	require.NoError(t, err)
	ingestN(r, "s-6", 3)

	require.Eventually(t, func() bool {
		return len(s.AlertHistory()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	alert := s.AlertHistory()[0]
	assert.Equal(t, detection.SourceAnalysis, alert.Source)
	assert.Equal(t, detection.LevelHigh, alert.Level)
}

func TestMalformedScoreClampedBeforeStorage(t *testing.T) {
	comp := scorer.ComprehensiveFunc(func(context.Context, scorer.Snapshot) (scorer.Result, error) {
		return scorer.Result{Score: 3.7, AlertLevel: detection.LevelLow}, nil
	})
	r := newTestEngine(t, quietQuick(), comp, nil)

	s, err := r.Start("s-7", "owner", nil)
	require.NoError(t, err)
	ingestN(r, "s-7", 3)

	require.Eventually(t, func() bool {
		return len(s.ScoreHistory()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.InDelta(t, 1.0, s.ScoreHistory()[0], 0.0001)
}

func TestFastPathTriggerBeatsSlowPoll(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), func(s *conf.Settings) {
		s.Realtime.Analysis.PollInterval = 500 * time.Millisecond
		s.Realtime.Analysis.Interval = 30 * time.Millisecond
	})

	s, err := r.Start("s-8", "owner", nil)
	require.NoError(t, err)

	// Wait out the analysis interval so the trigger can fire an analysis
	// immediately, then cross the fast-path size.
	time.Sleep(50 * time.Millisecond)
	ingestN(r, "s-8", 3)

	require.Eventually(t, func() bool {
		return len(s.ScoreHistory()) >= 1
	}, 400*time.Millisecond, 5*time.Millisecond,
		"the ingest trigger must wake the scheduler before its poll tick")
}

func TestStopReturnsFinalInsights(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	s, err := r.Start("s-9", "owner-9", map[string]string{"region": "eu"})
	require.NoError(t, err)
	ingestN(r, "s-9", 4)

	require.Eventually(t, func() bool {
		return len(s.ScoreHistory()) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	final, err := r.Stop("s-9")
	require.NoError(t, err)
	assert.Equal(t, "s-9", final.SessionID)
	assert.GreaterOrEqual(t, final.TotalAnalyses, 1)
	assert.Equal(t, 4, final.ConversationLength)
	assert.Greater(t, final.DurationSeconds, 0.0)

	// History is gone with the session.
	_, err = r.Insights("s-9")
	assert.True(t, errors.IsNotFound(err))
}

func TestSubmitFeedbackValidation(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	err := r.SubmitFeedback("s-1", 0.8, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	corrected := 0.1
	require.NoError(t, r.SubmitFeedback("s-1", 0.8, &corrected))
}

func TestIngestAfterStopIsDropped(t *testing.T) {
	r := newTestEngine(t, quietQuick(), quietComprehensive(), nil)

	_, err := r.Start("s-10", "owner", nil)
	require.NoError(t, err)
	_, err = r.Stop("s-10")
	require.NoError(t, err)

	r.Ingest("s-10", Chunk{Content: "late chunk"})
}
