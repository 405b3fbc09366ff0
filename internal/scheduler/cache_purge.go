package scheduler

import "github.com/rs/zerolog"

// Purger drops expired cache entries and reports how many were removed.
type Purger interface {
	Purge() int
}

// PurgePriceCacheJob evicts expired price histories
type PurgePriceCacheJob struct {
	cache Purger
	log   zerolog.Logger
}

// NewPurgePriceCacheJob creates the price cache purge job
func NewPurgePriceCacheJob(cache Purger, log zerolog.Logger) *PurgePriceCacheJob {
	return &PurgePriceCacheJob{
		cache: cache,
		log:   log.With().Str("job", "purge_price_cache").Logger(),
	}
}

// Name returns the job name
func (j *PurgePriceCacheJob) Name() string {
	return "purge_price_cache"
}

// Run executes the job
func (j *PurgePriceCacheJob) Run() error {
	removed := j.cache.Purge()
	j.log.Info().Int("removed", removed).Msg("Purged expired price history")
	return nil
}
