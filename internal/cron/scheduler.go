// Package cron schedules proactive prompts. A firing job publishes a
// synthetic inbound message on the bus; the agent dispatcher runs it in
// the job's target session, so the prompt sees that session's history
// and workspace and the reply goes to the session's recorded channel.
// Jobs are persisted under the data directory and survive restarts.
package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hkuds/vikingbot/internal/bus"
	"github.com/hkuds/vikingbot/internal/config"
)

// Job is one scheduled prompt.
type Job struct {
	ID       string `json:"id"`
	Schedule string `json:"schedule"` // 5-field cron expression or "@every 5m"
	Prompt   string `json:"prompt"`

	// TargetSessionKey names the session the prompt runs in, e.g.
	// "telegram:main:42".
	TargetSessionKey string `json:"targetSessionKey"`

	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

type jobEntry struct {
	Job    Job
	cancel context.CancelFunc
}

// Scheduler manages cron jobs and their timer goroutines.
type Scheduler struct {
	bus *bus.MessageBus

	mu      sync.RWMutex
	entries map[string]*jobEntry
	nextID  int

	persistPath string
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewScheduler creates a scheduler persisting to the default location.
func NewScheduler(msgBus *bus.MessageBus) *Scheduler {
	return &Scheduler{
		bus:         msgBus,
		entries:     make(map[string]*jobEntry),
		nextID:      1,
		persistPath: filepath.Join(config.CronDir(), "jobs.json"),
	}
}

// SetPersistPath overrides the persistence location.
func (s *Scheduler) SetPersistPath(path string) {
	s.persistPath = path
}

// Start loads persisted jobs and begins timers for the enabled ones.
// Fire times missed while the process was down are not backfilled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load cron jobs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.entries {
		if entry.Job.Enabled {
			s.startJobLocked(entry)
		}
	}
	return nil
}

// LoadJobs reads the persisted job file without starting any timers.
// Used by one-shot CLI edits; a missing file is not an error.
func (s *Scheduler) LoadJobs() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Stop cancels every running job timer.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// AddJob registers and starts a new job, returning its ID.
func (s *Scheduler) AddJob(schedule, prompt, targetSessionKey string) (string, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return "", err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}
	if strings.TrimSpace(targetSessionKey) == "" {
		return "", fmt.Errorf("target session key must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := strconv.Itoa(s.nextID)
	s.nextID++

	entry := &jobEntry{
		Job: Job{
			ID:               id,
			Schedule:         schedule,
			Prompt:           prompt,
			TargetSessionKey: targetSessionKey,
			Enabled:          true,
			CreatedAt:        time.Now(),
		},
	}
	s.entries[id] = entry

	if s.ctx != nil {
		s.startJobLocked(entry)
	}

	if err := s.saveLocked(); err != nil {
		return id, fmt.Errorf("job added but failed to persist: %w", err)
	}
	return id, nil
}

// RemoveJob stops and deletes a job.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("job %q not found", id)
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	delete(s.entries, id)
	return s.saveLocked()
}

// EnableJob resumes a disabled job's timer.
func (s *Scheduler) EnableJob(id string) error {
	return s.setEnabled(id, true)
}

// DisableJob pauses a job without removing it.
func (s *Scheduler) DisableJob(id string) error {
	return s.setEnabled(id, false)
}

func (s *Scheduler) setEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("job %q not found", id)
	}
	if entry.Job.Enabled == enabled {
		return nil
	}

	entry.Job.Enabled = enabled
	if enabled {
		if s.ctx != nil {
			s.startJobLocked(entry)
		}
	} else if entry.cancel != nil {
		entry.cancel()
		entry.cancel = nil
	}
	return s.saveLocked()
}

// ListJobs returns all jobs sorted by ID.
func (s *Scheduler) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.entries))
	for _, entry := range s.entries {
		jobs = append(jobs, entry.Job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

// startJobLocked launches the timer goroutine for one entry. The caller
// holds s.mu.
func (s *Scheduler) startJobLocked(entry *jobEntry) {
	jobCtx, jobCancel := context.WithCancel(s.ctx)
	entry.cancel = jobCancel
	go s.runJob(jobCtx, entry.Job)
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	if d, err := parseDuration(job.Schedule); err == nil {
		s.runIntervalJob(ctx, job, d)
		return
	}

	fields, err := parseCronFields(job.Schedule)
	if err != nil {
		// Validated in AddJob; a persisted file may still be hand-edited.
		return
	}
	s.runCronJob(ctx, job, fields)
}

func (s *Scheduler) runIntervalJob(ctx context.Context, job Job, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireJob(job)
		}
	}
}

func (s *Scheduler) runCronJob(ctx context.Context, job Job, fields cronFields) {
	for {
		now := time.Now()
		delay := fields.nextAfter(now).Sub(now)
		if delay < 0 {
			delay = time.Second
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fireJob(job)
		}
	}
}

// fireJob publishes the synthetic inbound message. The "cron:{id}"
// channel tag marks the message as synthetic so the dispatcher keys the
// session off ChatID instead and origin metadata is left untouched.
func (s *Scheduler) fireJob(job Job) {
	s.bus.PublishInbound(bus.InboundMessage{
		Channel:   "cron:" + job.ID,
		SenderID:  "cron",
		ChatID:    job.TargetSessionKey,
		Content:   job.Prompt,
		Timestamp: time.Now(),
	})
}

// ValidateSchedule reports whether spec is an interval ("@every 5m") or
// a 5-field cron expression.
func ValidateSchedule(spec string) error {
	if _, err := parseDuration(spec); err == nil {
		return nil
	}
	if _, err := parseCronFields(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// --- persistence ---

type persistedState struct {
	Jobs   []Job `json:"jobs"`
	NextID int   `json:"nextId"`
}

func (s *Scheduler) saveLocked() error {
	state := persistedState{
		Jobs:   make([]Job, 0, len(s.entries)),
		NextID: s.nextID,
	}
	for _, e := range s.entries {
		state.Jobs = append(state.Jobs, e.Job)
	}
	sort.Slice(state.Jobs, func(i, j int) bool { return state.Jobs[i].ID < state.Jobs[j].ID })

	if err := os.MkdirAll(filepath.Dir(s.persistPath), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.persistPath, data, 0o600)
}

func (s *Scheduler) load() error {
	data, err := os.ReadFile(s.persistPath)
	if err != nil {
		return err
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	for _, job := range state.Jobs {
		s.entries[job.ID] = &jobEntry{Job: job}
	}
	if state.NextID > s.nextID {
		s.nextID = state.NextID
	}
	return nil
}
