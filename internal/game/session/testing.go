//go:build !production

package session

import (
	"sync"
	"time"
)

// ManualScheduler 手动推进的调度器，同时充当时钟
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*ManualTimer
}

// ManualTimer ManualScheduler 登记的定时任务
type ManualTimer struct {
	sched    *ManualScheduler
	deadline time.Time
	fn       func()
	done     bool
}

// NewManualScheduler 创建调度器，起始时间固定
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

// Now 当前虚拟时间
func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc 登记任务
func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &ManualTimer{sched: m, deadline: m.now.Add(d), fn: f}
	m.timers = append(m.timers, t)
	return t
}

// Stop 取消任务
func (t *ManualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Pending 未触发也未取消的任务数
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.done {
			n++
		}
	}
	return n
}

// Advance 推进虚拟时间，按到期顺序执行期间到期的任务（包括执行中新登记的任务）
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var next *ManualTimer
		for _, t := range m.timers {
			if t.done || t.deadline.After(target) {
				continue
			}
			if next == nil || t.deadline.Before(next.deadline) {
				next = t
			}
		}
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		next.done = true
		m.now = next.deadline
		m.mu.Unlock()

		next.fn()
	}
}
