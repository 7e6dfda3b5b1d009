package utils

import (
	"context"
	"fmt"
	"time"
)

const (
	Ki = 1 << 10
	Mi = 1 << 20
	Gi = 1 << 30
)

func Measure(f func() error) (time.Duration, error) {
	t0 := time.Now()
	err := f()
	d := time.Since(t0)
	return d, err
}

func Rate(n int64, d time.Duration) float64 {
	return float64(n) / (float64(d) / float64(time.Second))
}

func ShowSize(n int64) string {
	switch {
	case n < Ki:
		return fmt.Sprintf("%dB", n)
	case n < Mi:
		return fmt.Sprintf("%dKiB", n/Ki)
	case n < Gi:
		return fmt.Sprintf("%dMiB", n/Mi)
	default:
		return fmt.Sprintf("%dGiB", n/Gi)
	}
}

func ShowRate(n int64, d time.Duration) string {
	r := Rate(n, d)
	switch {
	case r > Gi:
		return fmt.Sprintf("%.2f GiB/s", r/float64(Gi))
	case r > Mi:
		return fmt.Sprintf("%.2f MiB/s", r/float64(Mi))
	case r > Ki:
		return fmt.Sprintf("%.2f KiB/s", r/float64(Ki))
	default:
		return fmt.Sprintf("%.2f B/s", r)
	}
}

func pluralize(n int, singular, plural string) string {
	if n > 1 {
		return plural
	}
	return singular
}

func Pluralize(n int, singular, plural string) string {
	return fmt.Sprintf("%d %s", n, pluralize(n, singular, plural))
}

func CeilDiv(a, b int) int {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}

// Poll calls f until it returns true or ctx is done, returning the number of failed calls.
func Poll(ctx context.Context, f func() bool) (int, bool) {
	for i := 0; ; i++ {
		if f() {
			return i, true
		}
		select {
		case <-ctx.Done():
			return i + 1, false
		default:
		}
	}
}
