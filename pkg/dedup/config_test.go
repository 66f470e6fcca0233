package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero title limit", func(c *Config) { c.Match.TitleDistanceLimit = 0 }, true},
		{"negative author limit", func(c *Config) { c.Match.AuthorDistanceLimit = -1 }, true},
		{"negative page tolerance", func(c *Config) { c.Match.PageCountTolerance = -1 }, true},
		{"no candidates", func(c *Config) { c.MaxCandidates = 0 }, true},
		{"hot ceiling above ceiling", func(c *Config) { c.HotKeyMaxCandidates = 2000 }, true},
		{"empty hot cache", func(c *Config) { c.HotKeyCacheSize = 0 }, true},
		{"no truncation", func(c *Config) { c.Match.CompareTruncate = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
