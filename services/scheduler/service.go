package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

// Task is one periodic sync routine driven by the scheduler.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// TaskStatus is a point-in-time snapshot of a task for the debug
// surface.
type TaskStatus struct {
	Name      string     `json:"name"`
	Running   bool       `json:"running"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

type taskState struct {
	task      Task
	kick      chan struct{}
	running   bool
	lastRunAt *time.Time
	lastError string
}

// Service drives each registered task in its own loop: run one pass,
// log any failure without propagating it, then sleep the fixed
// interval. Cancellation during the sleep is honored immediately.
type Service struct {
	interval time.Duration

	mu      sync.RWMutex
	tasks   map[string]*taskState
	order   []string
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      conc.WaitGroup
}

func NewService(interval time.Duration, tasks ...Task) *Service {
	s := &Service{
		interval: interval,
		tasks:    make(map[string]*taskState, len(tasks)),
	}
	for _, t := range tasks {
		s.tasks[t.Name] = &taskState{task: t, kick: make(chan struct{}, 1)}
		s.order = append(s.order, t.Name)
	}
	return s
}

// Start launches one background loop per task.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	for _, name := range s.order {
		state := s.tasks[name]
		s.wg.Go(func() { s.loop(state) })
	}

	log.Printf("[scheduler] started %d sync loops (interval %s)", len(s.order), s.interval)
	return nil
}

// Stop cancels all loops and waits for them to acknowledge, bounded by
// the provided context.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		if p := s.wg.WaitAndRecover(); p != nil {
			log.Printf("[scheduler] sync loop panicked: %v", p)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Println("[scheduler] stopped gracefully")
	case <-ctx.Done():
		// A loop may still be mid-pass; the caller decides what an
		// incomplete shutdown means for the resources it owns.
		log.Println("[scheduler] stop timed out with loops still running")
		s.running = false
		return ctx.Err()
	}

	s.running = false
	return nil
}

// RunNow triggers an immediate out-of-band pass for the named task,
// bypassing the interval wait. The signal is dropped if a pass is
// already pending.
func (s *Service) RunNow(name string) error {
	s.mu.RLock()
	state, ok := s.tasks[name]
	running := s.running
	s.mu.RUnlock()

	if !ok {
		return errors.New("task not found")
	}
	if !running {
		return errors.New("scheduler is not running")
	}

	select {
	case state.kick <- struct{}{}:
	default:
	}
	return nil
}

// Status reports all tasks in registration order.
func (s *Service) Status() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]TaskStatus, 0, len(s.order))
	for _, name := range s.order {
		state := s.tasks[name]
		statuses = append(statuses, TaskStatus{
			Name:      name,
			Running:   state.running,
			LastRunAt: state.lastRunAt,
			LastError: state.lastError,
		})
	}
	return statuses
}

func (s *Service) loop(state *taskState) {
	for {
		s.runPass(state)

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.interval):
		case <-state.kick:
			log.Printf("[scheduler] %s: out-of-band pass requested", state.task.Name)
		}

		// A cancellation that raced the kick still wins.
		if s.ctx.Err() != nil {
			return
		}
	}
}

// runPass executes one pass and records its outcome. Errors are
// logged, never propagated: the loop must survive a failed pass.
func (s *Service) runPass(state *taskState) {
	s.mu.Lock()
	state.running = true
	s.mu.Unlock()

	start := time.Now().UTC()
	log.Printf("[scheduler] %s: pass starting", state.task.Name)
	err := state.task.Run(s.ctx)

	s.mu.Lock()
	state.running = false
	state.lastRunAt = &start
	if err != nil {
		state.lastError = err.Error()
	} else {
		state.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("[scheduler] %s: pass failed: %v", state.task.Name, err)
		return
	}
	log.Printf("[scheduler] %s: pass complete in %s", state.task.Name, time.Since(start).Round(time.Millisecond))
}
