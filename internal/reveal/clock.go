package reveal

import "time"

// Clock abstracts delayed callback scheduling so tests can drive the step
// chain deterministically instead of sleeping.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return systemTimer{time.AfterFunc(d, f)}
}

type systemTimer struct{ t *time.Timer }

func (st systemTimer) Stop() bool { return st.t.Stop() }

// SystemClock schedules on real wall-clock timers.
func SystemClock() Clock { return systemClock{} }
