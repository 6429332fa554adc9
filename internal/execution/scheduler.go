package execution

import (
	"container/heap"
	"sync"
	"time"
)

// scheduledTask is a callback queued to run at a specific instant.
// seq breaks ties so tasks scheduled for the same instant run in
// submission order
type scheduledTask struct {
	runAt time.Time
	seq   uint64
	fn    func()
}

type taskHeap []*scheduledTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].runAt.Equal(h[j].runAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].runAt.Before(h[j].runAt)
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*scheduledTask)) }

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return task
}

// Scheduler runs callbacks at scheduled instants using an injectable
// clock. A single goroutine drains the task queue so due tasks fire in
// deadline order
type Scheduler struct {
	clock Clock

	mu      sync.Mutex
	tasks   taskHeap
	nextSeq uint64
	stopped bool

	wake   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler driven by the given clock
func NewScheduler(clock Clock) *Scheduler {
	s := &Scheduler{
		clock:  clock,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
	heap.Init(&s.tasks)
	s.wg.Add(1)
	go s.run()
	return s
}

// Schedule queues fn to run after the given delay. Tasks queued after
// Stop are dropped
func (s *Scheduler) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.nextSeq++
	heap.Push(&s.tasks, &scheduledTask{
		runAt: s.clock.Now().Add(delay),
		seq:   s.nextSeq,
		fn:    fn,
	})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop shuts the scheduler down. Pending tasks are discarded and no
// callback fires after Stop returns
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.tasks = nil
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		var wait <-chan time.Time
		now := s.clock.Now()
		for len(s.tasks) > 0 && !s.tasks[0].runAt.After(now) {
			task := heap.Pop(&s.tasks).(*scheduledTask)
			s.mu.Unlock()
			task.fn()
			s.mu.Lock()
			now = s.clock.Now()
		}
		if len(s.tasks) > 0 {
			wait = s.clock.After(s.tasks[0].runAt.Sub(now))
		}
		s.mu.Unlock()

		if wait == nil {
			select {
			case <-s.wake:
			case <-s.stopCh:
				return
			}
			continue
		}

		select {
		case <-wait:
		case <-s.wake:
		case <-s.stopCh:
			return
		}
	}
}
