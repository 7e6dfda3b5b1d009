package utils

import (
	"time"
)

// StallDetector reports through warn while the operation it watches has
// been running for longer than period, and once more when it completes.
type StallDetector struct {
	name    string
	period  time.Duration
	warn    func(format string, v ...interface{})
	stopped chan struct{}
	done    chan struct{}
}

func InstallStallDetector(name string, period time.Duration, warn func(string, ...interface{})) *StallDetector {
	s := &StallDetector{
		name:    name,
		period:  period,
		warn:    warn,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.watch()
	return s
}

func (s *StallDetector) watch() {
	defer close(s.done)
	tk := time.NewTicker(s.period)
	defer tk.Stop()
	t0 := time.Now()
	var stalled bool
	for {
		select {
		case <-tk.C:
			stalled = true
			s.warn("%s stalled for %s", s.name, time.Since(t0))
		case <-s.stopped:
			if stalled {
				s.warn("%s recovered after %s", s.name, time.Since(t0))
			}
			return
		}
	}
}

func (s *StallDetector) Stop() {
	close(s.stopped)
	<-s.done
}
