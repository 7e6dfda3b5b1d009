package device

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

const streamDepth = 64

type task struct {
	name string
	f    func() error
}

// Stream is an ordering token: tasks run asynchronously, one at a time, in
// submission order. After a task fails the remaining tasks are skipped until
// Synchronize reports the failure.
type Stream struct {
	name  string
	tasks chan task
	wg    sync.WaitGroup
	once  sync.Once

	mu  sync.Mutex
	err error
}

func NewStream(name string) *Stream {
	s := &Stream{
		name:  name,
		tasks: make(chan task, streamDepth),
	}
	go s.run()
	return s
}

func (s *Stream) Name() string {
	return s.name
}

func (s *Stream) run() {
	for t := range s.tasks {
		s.exec(t)
		s.wg.Done()
	}
}

func (s *Stream) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

func (s *Stream) exec(t task) {
	if s.failed() {
		streamTasks.WithLabelValues("skipped").Inc()
		return
	}
	if err := call(t.f); err != nil {
		streamTasks.WithLabelValues("failed").Inc()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err == nil {
			s.err = errors.Wrapf(err, "stream %s: %s", s.name, t.name)
		}
		return
	}
	streamTasks.WithLabelValues("ok").Inc()
}

func call(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}

// Enqueue submits f. It blocks only when the stream queue is full.
func (s *Stream) Enqueue(name string, f func() error) {
	s.wg.Add(1)
	s.tasks <- task{name: name, f: f}
}

// Synchronize waits for all submitted tasks and returns the first failure since the last call.
func (s *Stream) Synchronize() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *Stream) Close() {
	s.once.Do(func() { close(s.tasks) })
}
