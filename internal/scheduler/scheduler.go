// Package scheduler runs background maintenance jobs on cron schedules.
package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus reports the most recent execution of a job
type JobStatus struct {
	Name      string    `json:"name" msgpack:"name"`
	Schedule  string    `json:"schedule" msgpack:"schedule"`
	Runs      int       `json:"runs" msgpack:"runs"`
	LastRun   time.Time `json:"last_run,omitempty" msgpack:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty" msgpack:"last_error,omitempty"`
	NextRun   time.Time `json:"next_run,omitempty" msgpack:"next_run,omitempty"`
}

type registeredJob struct {
	status  JobStatus
	entryID cron.EntryID
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
		jobs: make(map[string]*registeredJob),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}

	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.execute(job); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}

	s.jobs[job.Name()] = &registeredJob{
		status:  JobStatus{Name: job.Name(), Schedule: schedule},
		entryID: id,
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

func (s *Scheduler) execute(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")
	started := time.Now()
	err := job.Run()

	s.mu.Lock()
	if reg, ok := s.jobs[job.Name()]; ok {
		reg.status.Runs++
		reg.status.LastRun = started
		reg.status.LastError = ""
		if err != nil {
			reg.status.LastError = err.Error()
		}
	}
	s.mu.Unlock()

	if err == nil {
		s.log.Debug().Str("job", job.Name()).Dur("duration", time.Since(started)).Msg("Job completed")
	}
	return err
}

// Status lists registered jobs ordered by name
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, reg := range s.jobs {
		st := reg.status
		st.NextRun = s.cron.Entry(reg.entryID).Next
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
