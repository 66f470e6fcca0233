package dedup

import (
	"fmt"
	"time"

	"github.com/Ramsey-B/bramble/pkg/matching"
)

// Config holds the tunables of the dedup engine
type Config struct {
	// Match holds the thresholds of the pairwise match cascade
	Match matching.Config

	// MaxCandidates is the number of candidates examined for one key before the scan
	// is abandoned and the key flagged hot.
	// Default: 1000
	MaxCandidates int

	// HotKeyMaxCandidates is the lower ceiling used once a key is flagged hot.
	// Default: 100
	HotKeyMaxCandidates int

	// HotKeyCacheSize bounds the per-process set of hot keys.
	// Default: 2000
	HotKeyCacheSize int

	// SlowPassThreshold is the record pass duration above which a warning is logged.
	// Default: 700ms
	SlowPassThreshold time.Duration
}

// DefaultConfig returns the default dedup configuration
func DefaultConfig() Config {
	return Config{
		Match:               matching.DefaultConfig(),
		MaxCandidates:       1000,
		HotKeyMaxCandidates: 100,
		HotKeyCacheSize:     2000,
		SlowPassThreshold:   700 * time.Millisecond,
	}
}

// Validate checks that the configuration values are sane
func (c *Config) Validate() error {
	if c.Match.TitleDistanceLimit <= 0 {
		return fmt.Errorf("title distance limit must be positive, got %v", c.Match.TitleDistanceLimit)
	}
	if c.Match.AuthorDistanceLimit < 0 {
		return fmt.Errorf("author distance limit must be non-negative, got %v", c.Match.AuthorDistanceLimit)
	}
	if c.Match.PageCountTolerance < 0 {
		return fmt.Errorf("page count tolerance must be non-negative, got %d", c.Match.PageCountTolerance)
	}
	if c.Match.CompareTruncate < 0 {
		return fmt.Errorf("compare truncate must be non-negative, got %d", c.Match.CompareTruncate)
	}
	if c.MaxCandidates < 1 {
		return fmt.Errorf("max candidates must be at least 1, got %d", c.MaxCandidates)
	}
	if c.HotKeyMaxCandidates < 1 || c.HotKeyMaxCandidates > c.MaxCandidates {
		return fmt.Errorf("hot key max candidates must be between 1 and %d, got %d", c.MaxCandidates, c.HotKeyMaxCandidates)
	}
	if c.HotKeyCacheSize < 1 {
		return fmt.Errorf("hot key cache size must be at least 1, got %d", c.HotKeyCacheSize)
	}
	if c.SlowPassThreshold < 0 {
		return fmt.Errorf("slow pass threshold must be non-negative, got %v", c.SlowPassThreshold)
	}
	return nil
}
