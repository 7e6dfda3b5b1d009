package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Poll_OK(t *testing.T) {
	var n int
	f := func() bool {
		n++
		return n > 3
	}
	failed, ok := Poll(context.TODO(), f)
	assert.True(t, ok)
	assert.Equal(t, 3, failed)
}

func Test_Poll_Fail(t *testing.T) {
	ctx, cancel := context.WithCancel(context.TODO())
	var n int
	f := func() bool {
		n++
		if n == 2 {
			cancel()
		}
		return n > 3
	}
	failed, ok := Poll(ctx, f)
	assert.False(t, ok)
	assert.Equal(t, 2, failed)
}

func Test_MergeErrors(t *testing.T) {
	assert.NoError(t, MergeErrors([]error{nil, nil}, "par"))
	err := MergeErrors([]error{errors.New("a"), nil, errors.New("b")}, "par")
	assert.EqualError(t, err, "par failed with 2 errors: a, b")
}

func Test_CeilDiv(t *testing.T) {
	tests := []struct{ a, b, want int }{
		{0, 3, 0},
		{4, 2, 2},
		{5, 2, 3},
		{1, 4, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CeilDiv(tt.a, tt.b), "CeilDiv(%d, %d)", tt.a, tt.b)
	}
}

func Test_ShowRate(t *testing.T) {
	assert.Equal(t, "2.00 MiB/s", ShowRate(2*Mi, time.Second))
	assert.Equal(t, "512.00 B/s", ShowRate(512, time.Second))
	assert.Equal(t, "3MiB", ShowSize(3*Mi))
}

func Test_StallDetector(t *testing.T) {
	var mu sync.Mutex
	var msgs []string
	warn := func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		msgs = append(msgs, fmt.Sprintf(format, v...))
	}
	s := InstallStallDetector("epoch 1", 10*time.Millisecond, warn)
	time.Sleep(35 * time.Millisecond)
	s.Stop()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Contains(t, msgs[0], "epoch 1 stalled for")
	assert.Contains(t, msgs[len(msgs)-1], "epoch 1 recovered after")

	msgs = nil
	InstallStallDetector("quick", time.Hour, warn).Stop()
	assert.Empty(t, msgs)
}
