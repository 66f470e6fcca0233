// Package sources holds per-source settings: format, component part policy and format mapping.
package sources

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/bramble/pkg/metadata"
	"github.com/Ramsey-B/bramble/pkg/models"
)

// ComponentParts controls how a source's component parts are presented downstream
type ComponentParts string

const (
	// ComponentPartsAsIs keeps component parts as standalone records
	ComponentPartsAsIs ComponentParts = "as_is"
	// ComponentPartsMergeAll folds every component part into its host
	ComponentPartsMergeAll ComponentParts = "merge_all"
	// ComponentPartsMergeNonArticles folds everything but articles into the host
	ComponentPartsMergeNonArticles ComponentParts = "merge_non_articles"
)

// Source is the configuration of one data source
type Source struct {
	ID             string            `yaml:"id" validate:"required"`
	Format         string            `yaml:"format" validate:"required,oneof=marc lido ead forward"`
	ComponentParts ComponentParts    `yaml:"component_parts" validate:"omitempty,oneof=as_is merge_all merge_non_articles"`
	Dedup          *bool             `yaml:"dedup"`
	FormatMapping  map[string]string `yaml:"format_mapping"`
}

type file struct {
	Sources []Source `yaml:"sources" validate:"dive"`
}

// Registry answers per-source questions for the dedup engine. Unknown sources get defaults.
type Registry struct {
	sources map[string]Source
}

var validate = validator.New()

// New builds a registry from already validated sources
func New(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		r.sources[s.ID] = s
	}
	return r
}

// Load reads and validates a YAML sources file
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML source settings
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid sources: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Sources))
	for _, s := range f.Sources {
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("invalid sources: duplicate source id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return New(f.Sources...), nil
}

// Get returns the settings of a source
func (r *Registry) Get(id string) (Source, bool) {
	s, ok := r.sources[id]
	return s, ok
}

// IDs lists the configured source ids
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	return ids
}

// MapFormat translates a source's raw format into the normalized format, identity when unmapped
func (r *Registry) MapFormat(sourceID, format string) string {
	if s, ok := r.sources[sourceID]; ok {
		if mapped, ok := s.FormatMapping[format]; ok {
			return mapped
		}
	}
	return format
}

// DedupEnabled reports whether records of the source take part in deduplication
func (r *Registry) DedupEnabled(sourceID string) bool {
	s, ok := r.sources[sourceID]
	if !ok || s.Dedup == nil {
		return true
	}
	return *s.Dedup
}

// IsHiddenComponentPart reports whether a component part is merged into its host
// rather than shown on its own, which makes it comparable only with other hidden parts.
func (r *Registry) IsHiddenComponentPart(rec *models.Record, meta metadata.Record) bool {
	if !rec.IsComponentPart() {
		return false
	}
	switch r.sources[rec.SourceID].ComponentParts {
	case ComponentPartsMergeAll:
		return true
	case ComponentPartsMergeNonArticles:
		format := meta.Format()
		return format != "Article" && format != "eArticle"
	}
	return false
}
