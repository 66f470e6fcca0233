package processor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/dedup"
	"github.com/Ramsey-B/bramble/pkg/kafka"
	"github.com/Ramsey-B/bramble/pkg/matching"
	"github.com/Ramsey-B/bramble/pkg/metadata/metadatatest"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/processor"
	"github.com/Ramsey-B/bramble/pkg/sources"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/store/memory"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func addBook(t *testing.T, st store.Store, id, title string, isbns ...string) {
	t.Helper()
	stub := metadatatest.Stub{TitleValue: title, FormatValue: "Book", ISBNList: isbns}
	rec := &models.Record{
		ID:           id,
		SourceID:     models.SourcePrefix(id),
		Format:       metadatatest.Format,
		LinkingID:    id,
		UpdateNeeded: true,
		Payload:      metadatatest.Payload(stub),
	}
	rec, _ = dedup.UpdateCandidateKeys(rec, &stub)
	require.NoError(t, st.SaveRecord(context.Background(), rec))
}

// fakeEngine records calls, fails for the ids in fail and panics for the ids in crash
type fakeEngine struct {
	mu      sync.Mutex
	fail    map[string]bool
	crash   map[string]bool
	lines   map[string][]string
	seen    []string
	checked []string
}

func (e *fakeEngine) Process(_ context.Context, id string) (dedup.Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, id)
	if e.crash[id] {
		panic("nil metadata field")
	}
	if e.fail[id] {
		return "", errors.New("unparsable payload")
	}
	return dedup.OutcomeUnmatched, nil
}

func (e *fakeEngine) CheckDedupRecord(_ context.Context, group *models.DedupGroup) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checked = append(e.checked, group.ID)
	if e.fail[group.ID] {
		return nil, errors.New("store unavailable")
	}
	return e.lines[group.ID], nil
}

func TestRunBatch_DedupsFlaggedRecords(t *testing.T) {
	logger := testLogger()
	st := memory.New()
	registry := sources.New()
	matcher := matching.NewMatcher(logger, metadatatest.Factory(), registry, matching.DefaultConfig())
	handler, err := dedup.NewHandler(logger, st, matcher, registry, dedup.DefaultConfig())
	require.NoError(t, err)

	addBook(t, st, "u.1", "Gardening Basics", "9781111111111")
	addBook(t, st, "x.1", "Design Patterns", "9780321125217")
	addBook(t, st, "y.1", "Design Patterns", "9780321125217")
	addBook(t, st, "z.1", "Design Patterns", "9780321125217")

	p := processor.NewProcessor(logger, st, handler, processor.Config{Workers: 1, BatchSize: 2})
	stats, err := p.RunBatch(t.Context())
	require.NoError(t, err)

	// y.1 is linked while x.1 is processed, which clears its flag
	assert.Equal(t, int64(3), stats.Processed.Load())
	assert.Equal(t, int64(2), stats.Matched.Load())
	assert.Equal(t, int64(1), stats.Unmatched.Load())
	assert.Zero(t, stats.Failed.Load())

	x, err := st.GetRecord(t.Context(), "x.1")
	require.NoError(t, err)
	require.NotEmpty(t, x.DedupID)
	group, err := st.GetDedup(t.Context(), x.DedupID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x.1", "y.1", "z.1"}, group.IDs)

	for rec, err := range st.FindRecords(t.Context(), store.RecordFilter{UpdateNeeded: store.Bool(true)}) {
		require.NoError(t, err)
		t.Errorf("record %s still flagged", rec.ID)
	}
}

func TestRunBatch_FailureDoesNotAbort(t *testing.T) {
	st := memory.New()
	for _, id := range []string{"a.1", "a.2", "a.3", "a.4", "a.5"} {
		addBook(t, st, id, "Title "+id)
	}
	engine := &fakeEngine{fail: map[string]bool{"a.2": true}}

	p := processor.NewProcessor(testLogger(), st, engine, processor.Config{Workers: 3, BatchSize: 2})
	stats, err := p.RunBatch(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Processed.Load())
	assert.Equal(t, int64(1), stats.Failed.Load())
	assert.Equal(t, int64(4), stats.Unmatched.Load())
	assert.ElementsMatch(t, []string{"a.1", "a.2", "a.3", "a.4", "a.5"}, engine.seen)
}

func TestRunBatch_PanicCountsAsFailure(t *testing.T) {
	st := memory.New()
	for _, id := range []string{"a.1", "a.2", "a.3"} {
		addBook(t, st, id, "Title "+id)
	}
	engine := &fakeEngine{crash: map[string]bool{"a.2": true}}

	p := processor.NewProcessor(testLogger(), st, engine, processor.Config{Workers: 2, BatchSize: 10})
	stats, err := p.RunBatch(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Processed.Load())
	assert.Equal(t, int64(1), stats.Failed.Load())
	assert.Equal(t, int64(2), stats.Unmatched.Load())
}

func TestCheckGroups(t *testing.T) {
	st := memory.New()
	ctx := t.Context()
	for _, id := range []string{"g1", "g2", "g3", "g4"} {
		require.NoError(t, st.SaveDedup(ctx, &models.DedupGroup{ID: id, IDs: []string{"a." + id, "b." + id}}))
	}
	require.NoError(t, st.SaveDedup(ctx, &models.DedupGroup{ID: "g0", Deleted: true}))

	engine := &fakeEngine{
		fail:  map[string]bool{"g4": true},
		lines: map[string][]string{"g2": {"removed a.g2", "removed b.g2"}},
	}
	p := processor.NewProcessor(testLogger(), st, engine, processor.Config{Workers: 2, BatchSize: 2})

	stats, err := p.CheckGroups(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1", "g2", "g3", "g4"}, engine.checked)
	assert.Equal(t, int64(4), stats.Checked.Load())
	assert.Equal(t, int64(1), stats.Repaired.Load())
	assert.Equal(t, int64(2), stats.Removed.Load())
	assert.Equal(t, int64(1), stats.Failed.Load())
}

func TestProcessMessage(t *testing.T) {
	engine := &fakeEngine{fail: map[string]bool{"a.2": true}}
	p := processor.NewProcessor(testLogger(), memory.New(), engine, processor.Config{})

	ok := &kafka.IncomingMessage{RecordEvent: &kafka.RecordEvent{EventType: kafka.EventRecordUpdated, RecordID: "a.1"}}
	assert.NoError(t, p.ProcessMessage(t.Context(), ok))

	failing := &kafka.IncomingMessage{RecordEvent: &kafka.RecordEvent{EventType: kafka.EventRecordUpdated, RecordID: "a.2"}}
	assert.Error(t, p.ProcessMessage(t.Context(), failing))
	assert.Equal(t, []string{"a.1", "a.2"}, engine.seen)
}

func TestRun_StopsOnCancel(t *testing.T) {
	engine := &fakeEngine{}
	p := processor.NewProcessor(testLogger(), memory.New(), engine, processor.Config{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, time.Hour) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Empty(t, engine.seen)
}
