package config

import (
	"strings"
	"sync"
	"time"
)

type ScoringConfig struct {
	// PacingDelay separates consecutive upstream calls inside one job batch.
	PacingDelay        time.Duration
	ResumeFetchTimeout time.Duration
	// ResumeRoot is where relative resume references are read from. Empty
	// disables local references.
	ResumeRoot         string
	ResumeAllowedHosts []string
	// RescoreParallelism caps how many jobs are rescored at once.
	RescoreParallelism int
}

var (
	scoringConfig *ScoringConfig
	scoringOnce   sync.Once
)

func LoadScoringConfig() *ScoringConfig {
	scoringOnce.Do(func() {
		scoringConfig = newScoringConfig()
	})
	return scoringConfig
}

func newScoringConfig() *ScoringConfig {
	return &ScoringConfig{
		PacingDelay:        getDuration("SCORING_PACING_DELAY", 200*time.Millisecond),
		ResumeFetchTimeout: getTimeout("RESUME_FETCH_TIMEOUT", 15*time.Second),
		ResumeRoot:         strings.TrimSpace(getString("RESUME_ROOT", "")),
		ResumeAllowedHosts: getList("RESUME_ALLOWED_HOSTS", []string{"res.cloudinary.com"}),
		RescoreParallelism: getInt("RESCORE_PARALLELISM", 4),
	}
}
