// Package matching decides whether two bibliographic records describe the same work.
package matching

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/internal/tracing"
	"github.com/Ramsey-B/bramble/pkg/metadata"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/normalizers"
	"github.com/Ramsey-B/bramble/pkg/sources"
)

// Config contains the thresholds of the match cascade
type Config struct {
	TitleDistanceLimit  float64 // scaled title distance must stay below this (default: 10)
	AuthorDistanceLimit float64 // scaled author distance must not exceed this (default: 20)
	PageCountTolerance  int     // maximum page count difference (default: 10)
	CompareTruncate     int     // runes compared by the distance checks (default: 255)
}

// DefaultConfig returns default matcher configuration
func DefaultConfig() Config {
	return Config{
		TitleDistanceLimit:  10,
		AuthorDistanceLimit: 20,
		PageCountTolerance:  10,
		CompareTruncate:     255,
	}
}

// Reasons reported by Compare. A match carries the reason that decided it.
const (
	ReasonHiddenComponentPart = "hidden component part status differs"
	ReasonAccessRestrictions  = "access restrictions differ"
	ReasonFormat              = "format differs"
	ReasonISBN                = "shared isbn"
	ReasonUniqueID            = "shared unique id"
	ReasonISSN                = "issns differ"
	ReasonYear                = "publication year differs"
	ReasonPageCount           = "page count differs"
	ReasonSeriesISSN          = "series issn differs"
	ReasonSeriesNumbering     = "series numbering differs"
	ReasonMissingTitle        = "title missing"
	ReasonTitle               = "title differs"
	ReasonMissingAuthor       = "author missing on one side"
	ReasonAuthor              = "author differs"
	ReasonAllChecks           = "all checks passed"
	ReasonUnparsable          = "candidate metadata unparsable"
)

// Result is the outcome of a comparison
type Result struct {
	Match  bool
	Reason string
}

// Matcher runs the pairwise match cascade
type Matcher struct {
	logger  ectologger.Logger
	factory *metadata.Factory
	sources *sources.Registry
	scorer  *Scorer
	config  Config
}

// NewMatcher creates a new Matcher
func NewMatcher(logger ectologger.Logger, factory *metadata.Factory, registry *sources.Registry, config Config) *Matcher {
	return &Matcher{
		logger:  logger,
		factory: factory,
		sources: registry,
		scorer:  NewScorer(config.CompareTruncate),
		config:  config,
	}
}

// Parse builds the metadata view of a stored record
func (m *Matcher) Parse(rec *models.Record) (metadata.Record, error) {
	return m.factory.Create(rec.Format, rec.Payload, rec.ID, rec.SourceID)
}

// Matches reports whether cand is a duplicate of rec, whose metadata is already parsed
func (m *Matcher) Matches(ctx context.Context, rec *models.Record, meta metadata.Record, cand *models.Record) bool {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.Matches")
	defer span.End()

	log := m.logger.WithContext(ctx).WithFields(map[string]any{
		"record_id":    rec.ID,
		"candidate_id": cand.ID,
	})

	candMeta, err := m.Parse(cand)
	if err != nil {
		log.WithError(err).Warn("failed to parse candidate metadata")
		return false
	}

	result := m.Compare(rec, meta, cand, candMeta)
	log.WithFields(map[string]any{"match": result.Match, "reason": result.Reason}).Debug("compared candidate")
	return result.Match
}

// Compare runs the cascade over two parsed records. Checks are ordered cheapest first
// and the first decisive check returns.
//
// Title and author distances are scaled by the shorter of the two strings rather than
// by the record's own value, so Compare gives the same answer with the arguments swapped.
func (m *Matcher) Compare(rec *models.Record, meta metadata.Record, cand *models.Record, candMeta metadata.Record) Result {
	if m.sources.IsHiddenComponentPart(rec, meta) != m.sources.IsHiddenComponentPart(cand, candMeta) {
		return Result{Reason: ReasonHiddenComponentPart}
	}

	if meta.AccessRestrictions() != candMeta.AccessRestrictions() {
		return Result{Reason: ReasonAccessRestrictions}
	}

	format, candFormat := meta.Format(), candMeta.Format()
	if format != candFormat &&
		m.sources.MapFormat(rec.SourceID, format) != m.sources.MapFormat(cand.SourceID, candFormat) {
		return Result{Reason: ReasonFormat}
	}

	if intersects(meta.ISBNs(), candMeta.ISBNs()) {
		return Result{Match: true, Reason: ReasonISBN}
	}
	if intersects(meta.UniqueIDs(), candMeta.UniqueIDs()) {
		return Result{Match: true, Reason: ReasonUniqueID}
	}

	issns, candISSNs := meta.ISSNs(), candMeta.ISSNs()
	if len(issns) > 0 && len(candISSNs) > 0 && !intersects(issns, candISSNs) {
		return Result{Reason: ReasonISSN}
	}

	year, candYear := meta.PublicationYear(), candMeta.PublicationYear()
	if year != "" && candYear != "" && year != candYear {
		return Result{Reason: ReasonYear}
	}

	pages, candPages := meta.PageCount(), candMeta.PageCount()
	if pages > 0 && candPages > 0 && abs(pages-candPages) > m.config.PageCountTolerance {
		return Result{Reason: ReasonPageCount}
	}

	if meta.SeriesISSN() != candMeta.SeriesISSN() {
		return Result{Reason: ReasonSeriesISSN}
	}
	if meta.SeriesNumbering() != candMeta.SeriesNumbering() {
		return Result{Reason: ReasonSeriesNumbering}
	}

	title := normalizers.Text(meta.Title(true))
	candTitle := normalizers.Text(candMeta.Title(true))
	if title == "" || candTitle == "" {
		return Result{Reason: ReasonMissingTitle}
	}
	if m.scorer.ScaledDistance(title, candTitle) >= m.config.TitleDistanceLimit {
		return Result{Reason: ReasonTitle}
	}

	author := normalizers.Text(meta.MainAuthor())
	candAuthor := normalizers.Text(candMeta.MainAuthor())
	if (author == "") != (candAuthor == "") {
		return Result{Reason: ReasonMissingAuthor}
	}
	if author != "" && !m.scorer.AuthorMatch(author, candAuthor) &&
		m.scorer.ScaledDistance(author, candAuthor) > m.config.AuthorDistanceLimit {
		return Result{Reason: ReasonAuthor}
	}

	return Result{Match: true, Reason: ReasonAllChecks}
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	for _, v := range b {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// SharesAny reports whether two key sets intersect
func SharesAny(a, b []string) bool {
	return intersects(a, b)
}

// Disjoint reports whether both key sets are non-empty and share nothing
func Disjoint(a, b []string) bool {
	return len(a) > 0 && len(b) > 0 && !intersects(a, b)
}

func (r Result) String() string {
	if r.Match {
		return "match: " + r.Reason
	}
	return "no match: " + r.Reason
}
