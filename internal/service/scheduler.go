package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler управляет именованными задачами поверх cron.
// Имя задачи уникально: повторяющаяся задача заменяет предыдущую, одноразовая не дублируется.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID
	running bool
}

// NewScheduler создает новый планировщик
func NewScheduler(logger *zap.Logger) *Scheduler {
	cronLogger := &cronLogger{logger: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Start запускает планировщик
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", zap.Int("tasks_count", len(s.entries)))
	return nil
}

// Stop останавливает планировщик и ждет завершения выполняющихся задач
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// ScheduleRepeating заменяет задачу name новой: первый запуск через first, далее каждые every
func (s *Scheduler) ScheduleRepeating(name string, first, every time.Duration, job func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(name)
	id := s.cron.Schedule(warmupSchedule{firstAt: time.Now().Add(first), every: every}, cron.FuncJob(job))
	s.entries[name] = id

	s.logger.Info("Scheduled repeating task",
		zap.String("name", name),
		zap.Duration("first_run_in", first),
		zap.Duration("every", every))
}

// ScheduleOnce планирует одноразовую задачу. Возвращает false, если задача с таким именем уже ожидает запуска.
func (s *Scheduler) ScheduleOnce(name string, delay time.Duration, job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		s.logger.Debug("One-shot task already pending", zap.String("name", name))
		return false
	}

	var id cron.EntryID
	id = s.cron.Schedule(&onceSchedule{at: time.Now().Add(delay)}, cron.FuncJob(func() {
		s.mu.Lock()
		if current, ok := s.entries[name]; ok && current == id {
			delete(s.entries, name)
		}
		s.cron.Remove(id)
		s.mu.Unlock()

		job()
	}))
	s.entries[name] = id

	s.logger.Info("Scheduled one-shot task",
		zap.String("name", name),
		zap.Duration("delay", delay))
	return true
}

// Cancel снимает задачу по имени
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(name)
}

// Pending сообщает, запланирована ли задача
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// NextRun возвращает время следующего запуска задачи
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	entry := s.cron.Entry(id)
	return entry.Next, entry.Valid()
}

// GetStatus возвращает статус планировщика для health check
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	running := s.running
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)

	nextRuns := make(map[string]string, len(names))
	for _, name := range names {
		if next, ok := s.NextRun(name); ok && !next.IsZero() {
			nextRuns[name] = next.Format(time.RFC3339)
		}
	}

	return map[string]interface{}{
		"running":      running,
		"active_tasks": len(names),
		"tasks":        names,
		"next_runs":    nextRuns,
	}
}

func (s *Scheduler) cancelLocked(name string) bool {
	id, ok := s.entries[name]
	if !ok {
		return false
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	s.logger.Info("Cancelled task", zap.String("name", name))
	return true
}

// warmupSchedule срабатывает в firstAt, затем с периодом every
type warmupSchedule struct {
	firstAt time.Time
	every   time.Duration
}

func (w warmupSchedule) Next(t time.Time) time.Time {
	if t.Before(w.firstAt) {
		return w.firstAt
	}
	return t.Add(w.every)
}

// onceSchedule срабатывает один раз; нулевое время cron не запускает
type onceSchedule struct {
	at     time.Time
	issued atomic.Bool
}

func (o *onceSchedule) Next(time.Time) time.Time {
	if o.issued.CompareAndSwap(false, true) {
		return o.at
	}
	return time.Time{}
}

// cronLogger направляет журнал cron в zap
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw("cron: "+msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}

// detachedContext возвращает контекст с таймаутом для фоновых задач
func detachedContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
