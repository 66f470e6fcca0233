package dedup

import (
	"context"
	"iter"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
)

// CandidateSearch looks up records sharing a candidate key and remembers keys
// that produced too many candidates. The hot key cache is local to the process
// and only bounds scan cost.
type CandidateSearch struct {
	store         store.Store
	hot           *lru.Cache[string, struct{}]
	maxCandidates int
	hotMax        int
}

// NewCandidateSearch creates a candidate search with a hot key cache of cacheSize entries
func NewCandidateSearch(st store.Store, maxCandidates, hotMax, cacheSize int) (*CandidateSearch, error) {
	hot, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, err
	}
	return &CandidateSearch{
		store:         st,
		hot:           hot,
		maxCandidates: maxCandidates,
		hotMax:        hotMax,
	}, nil
}

// FindCandidates streams live records carrying the key value, excluding records of excludeSourceID
func (s *CandidateSearch) FindCandidates(ctx context.Context, keyType models.KeyType, keyValue, excludeSourceID string) iter.Seq2[*models.Record, error] {
	return s.store.FindRecords(ctx, store.RecordFilter{
		KeyType:         keyType,
		KeyValue:        keyValue,
		ExcludeSourceID: excludeSourceID,
		Deleted:         store.Bool(false),
	})
}

// Limit returns how many candidates may be examined for the key
func (s *CandidateSearch) Limit(keyType models.KeyType, keyValue string) int {
	if s.IsHot(keyType, keyValue) {
		return s.hotMax
	}
	return s.maxCandidates
}

// IsHot reports whether the key has been flagged for producing too many candidates
func (s *CandidateSearch) IsHot(keyType models.KeyType, keyValue string) bool {
	return s.hot.Contains(hotKey(keyType, keyValue))
}

// MarkHot flags the key
func (s *CandidateSearch) MarkHot(keyType models.KeyType, keyValue string) {
	s.hot.Add(hotKey(keyType, keyValue), struct{}{})
}

func hotKey(keyType models.KeyType, keyValue string) string {
	return string(keyType) + "=" + keyValue
}
