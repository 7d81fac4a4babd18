// Package scheduler runs recurring scan passes over configured address
// ranges. Jobs are held in memory and fire on standard 5-field cron
// expressions; each firing is a fresh pass with its own generation marker,
// persisted through the history store when one is attached.
package scheduler

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/kvisle/hostscan/internal/config"
	"github.com/kvisle/hostscan/internal/errors"
	"github.com/kvisle/hostscan/internal/feeders"
	"github.com/kvisle/hostscan/internal/fetchers"
	"github.com/kvisle/hostscan/internal/logging"
	"github.com/kvisle/hostscan/internal/metrics"
	"github.com/kvisle/hostscan/internal/scanning"
	"github.com/kvisle/hostscan/internal/store"
)

// Job is one recurring scan over an address range.
type Job struct {
	ID       uuid.UUID
	CronID   cron.EntryID
	Name     string
	CronExpr string
	Start    netip.Addr
	End      netip.Addr
	LastRun  time.Time
	NextRun  time.Time
	Running  bool
}

// Scheduler manages recurring scan jobs.
type Scheduler struct {
	cfg     *config.Config
	store   *store.Store
	cron    *cron.Cron
	jobs    map[uuid.UUID]*Job
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	log     *logging.Logger
}

// New creates a scheduler. The store may be nil, in which case results are
// scanned but not persisted.
func New(cfg *config.Config, historyStore *store.Store) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:    cfg,
		store:  historyStore,
		cron:   cron.New(),
		jobs:   make(map[uuid.UUID]*Job),
		ctx:    ctx,
		cancel: cancel,
		log:    logging.Default().WithComponent("scheduler"),
	}
}

// Start begins firing jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.NewScanError(errors.CodeValidation, "scheduler is already running")
	}
	s.cron.Start()
	s.running = true
	s.log.InfoScan("scheduler started", "", "jobs", len(s.jobs))
	return nil
}

// Stop stops firing jobs and cancels any pass in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.cancel()
	s.running = false
	s.log.Info("scheduler stopped")
}

// AddJob registers a recurring scan over [start, end]. The range and cron
// expression are validated up front so a bad job never fires.
func (s *Scheduler) AddJob(name, cronExpr string, start, end netip.Addr) (uuid.UUID, error) {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return uuid.Nil, errors.WrapScanError(errors.CodeValidation,
			"invalid cron expression", err)
	}
	if _, err := feeders.NewRangeFeeder(start, end); err != nil {
		return uuid.Nil, err
	}

	job := &Job{
		ID:       uuid.New(),
		Name:     name,
		CronExpr: cronExpr,
		Start:    start,
		End:      end,
	}

	cronID, err := s.cron.AddFunc(cronExpr, func() {
		s.runJob(job.ID)
	})
	if err != nil {
		return uuid.Nil, errors.WrapScanError(errors.CodeValidation,
			"failed to schedule job", err)
	}

	s.mu.Lock()
	job.CronID = cronID
	job.NextRun = s.cron.Entry(cronID).Next
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.log.InfoScan("job scheduled", fmt.Sprintf("%s-%s", start, end),
		"job_id", job.ID.String(), "cron", cronExpr)
	return job.ID, nil
}

// RemoveJob unschedules a job.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return errors.NewScanError(errors.CodeValidation,
			"unknown job").WithContext("job_id", id.String())
	}
	s.cron.Remove(job.CronID)
	delete(s.jobs, id)
	return nil
}

// ListJobs returns a snapshot of the registered jobs.
func (s *Scheduler) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

// runJob executes one pass of a job. Overlapping firings are collapsed: if
// the previous pass is still running the new firing is skipped.
func (s *Scheduler) runJob(id uuid.UUID) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || job.Running {
		s.mu.Unlock()
		return
	}
	job.Running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		job.LastRun = time.Now()
		job.NextRun = s.cron.Entry(job.CronID).Next
		job.Running = false
		s.mu.Unlock()
	}()

	timer := metrics.NewTimer(metrics.MetricPassDuration,
		metrics.Labels{metrics.LabelJob: job.Name})
	defer timer.Stop()

	if err := s.executePass(job); err != nil {
		metrics.IncrementPassTotal(job.Name, "error")
		s.log.ErrorScan("scheduled pass failed",
			fmt.Sprintf("%s-%s", job.Start, job.End), err,
			"job_id", job.ID.String())
		return
	}
	metrics.IncrementPassTotal(job.Name, "success")
}

// executePass scans the job's range once and persists the results.
func (s *Scheduler) executePass(job *Job) error {
	feeder, err := feeders.NewRangeFeeder(job.Start, job.End)
	if err != nil {
		return err
	}

	registry := fetchers.NewRegistry()
	registry.RegisterDefaults(&s.cfg.Scanner)
	scanner, err := scanning.NewScanner(registry.SelectedFetchers(), &s.cfg.Scanner)
	if err != nil {
		return err
	}

	var scanID int64
	started := false
	total, alive, withPorts := 0, 0, 0

	for result := range scanner.Stream(s.ctx, feeder) {
		total++
		metrics.IncrementPassHosts(job.Name, result.Classification.String())
		switch result.Classification {
		case scanning.ClassAlive:
			alive++
		case scanning.ClassWithPorts:
			withPorts++
		}

		if s.store == nil {
			continue
		}
		if !started {
			scanID, err = s.store.BeginScan(s.ctx, result.Generation)
			if err != nil {
				return err
			}
			started = true
		}
		if err := s.store.RecordHost(s.ctx, scanID, result); err != nil {
			return err
		}
	}

	if started {
		return s.store.CompleteScan(s.ctx, scanID, total, alive, withPorts)
	}
	return nil
}
