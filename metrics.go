package locks

import (
	"github.com/ceyewan/locks/metrics"
	"github.com/ceyewan/locks/xerrors"
)

// 指标名
const (
	// MetricLockAcquired 锁获取成功次数 (Counter)
	MetricLockAcquired = "locks_acquired_total"

	// MetricLockFailed 锁获取失败次数 (Counter)，reason 区分占用与后端错误
	MetricLockFailed = "locks_failed_total"

	// MetricLockReleased 锁释放次数 (Counter)
	MetricLockReleased = "locks_released_total"

	// MetricLockHeld 当前持有的锁数量 (Gauge)
	MetricLockHeld = "locks_held"

	// MetricLockWaitDuration 获取耗时 (Histogram)
	MetricLockWaitDuration = "locks_wait_duration_seconds"

	// MetricLockHoldDuration 持有时长 (Histogram)
	MetricLockHoldDuration = "locks_hold_duration_seconds"

	LabelBackend  = "backend"
	LabelLockType = "lock_type"
	LabelReason   = "reason"

	ReasonLocked = "locked"
	ReasonError  = "error"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}

type lockMetrics struct {
	acquired metrics.Counter
	failed   metrics.Counter
	released metrics.Counter
	held     metrics.Gauge
	wait     metrics.Histogram
	hold     metrics.Histogram
}

func newLockMetrics(m metrics.Meter) (*lockMetrics, error) {
	if m == nil {
		m = metrics.Discard()
	}
	lm := &lockMetrics{}
	var err error
	if lm.acquired, err = m.Counter(MetricLockAcquired, "锁获取成功次数"); err != nil {
		return nil, xerrors.Wrap(err, "create acquired counter")
	}
	if lm.failed, err = m.Counter(MetricLockFailed, "锁获取失败次数"); err != nil {
		return nil, xerrors.Wrap(err, "create failed counter")
	}
	if lm.released, err = m.Counter(MetricLockReleased, "锁释放次数"); err != nil {
		return nil, xerrors.Wrap(err, "create released counter")
	}
	if lm.held, err = m.Gauge(MetricLockHeld, "当前持有的锁数量"); err != nil {
		return nil, xerrors.Wrap(err, "create held gauge")
	}
	if lm.wait, err = m.Histogram(MetricLockWaitDuration, "锁获取耗时", metrics.WithUnit("s"), metrics.WithBuckets(durationBuckets)); err != nil {
		return nil, xerrors.Wrap(err, "create wait histogram")
	}
	if lm.hold, err = m.Histogram(MetricLockHoldDuration, "锁持有时长", metrics.WithUnit("s"), metrics.WithBuckets(durationBuckets)); err != nil {
		return nil, xerrors.Wrap(err, "create hold histogram")
	}
	return lm, nil
}
