package postgres_test

import (
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/internal/database"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/store"
	"github.com/Ramsey-B/bramble/pkg/store/postgres"
)

// newStore connects to TEST_DATABASE_URL and applies the migrations; the test is skipped without it
func newStore(t *testing.T) (*postgres.Store, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostgreSQL test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	conn, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{MigrationFolderPath: "../../../db/pg"})
	require.NoError(t, migrations.Migrate("bramble", conn))

	// a fresh source per test keeps runs independent
	return postgres.New(database.NewDatabaseInstance(conn), logger), "t" + uuid.NewString()[:8]
}

func testRecord(st *postgres.Store, source, local string) *models.Record {
	now := st.Timestamp()
	return &models.Record{
		ID:        source + "." + local,
		SourceID:  source,
		Format:    "marc",
		LinkingID: local,
		ISBNKeys:  []string{"9780000" + source},
		TitleKeys: []string{"title" + local},
		Payload:   []byte(`{"leader":"00000cam a2200000 a 4500"}`),
		Created:   now,
		Updated:   now,
	}
}

func TestStore_SaveAndGetRecord(t *testing.T) {
	st, source := newStore(t)
	ctx := t.Context()

	rec := testRecord(st, source, "1")
	require.NoError(t, st.SaveRecord(ctx, rec))

	got, err := st.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.SourceID, got.SourceID)
	assert.Equal(t, rec.ISBNKeys, got.ISBNKeys)
	assert.Equal(t, rec.TitleKeys, got.TitleKeys)
	assert.Nil(t, got.IDKeys)
	assert.Empty(t, got.DedupID)
	assert.Empty(t, got.HostRecordID)
	assert.Equal(t, rec.Payload, got.Payload)

	missing, err := st.GetRecord(ctx, source+".missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_FindByKey(t *testing.T) {
	st, source := newStore(t)
	ctx := t.Context()

	for _, local := range []string{"1", "2", "3"} {
		require.NoError(t, st.SaveRecord(ctx, testRecord(st, source, local)))
	}

	var ids []string
	for rec, err := range st.FindRecords(ctx, store.RecordFilter{
		KeyType:  models.KeyTypeISBN,
		KeyValue: "9780000" + source,
		Deleted:  store.Bool(false),
	}) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{source + ".1", source + ".2", source + ".3"}, ids)

	ids = nil
	for rec, err := range st.FindRecords(ctx, store.RecordFilter{SourceID: source, AfterID: source + ".1", Limit: 1}) {
		require.NoError(t, err)
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{source + ".2"}, ids)
}

func TestStore_UpdateRecords(t *testing.T) {
	st, source := newStore(t)
	ctx := t.Context()

	rec := testRecord(st, source, "1")
	require.NoError(t, st.SaveRecord(ctx, rec))

	n, err := st.UpdateRecords(ctx, store.RecordFilter{IDs: []string{rec.ID}}, store.RecordUpdate{
		DedupID:      store.String("group-" + source),
		UpdateNeeded: store.Bool(true),
		Updated:      st.Timestamp(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := st.FindRecord(ctx, store.RecordFilter{DedupID: "group-" + source, UpdateNeeded: store.Bool(true)})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, rec.ID, found.ID)

	_, err = st.UpdateRecords(ctx, store.RecordFilter{IDs: []string{rec.ID}}, store.RecordUpdate{
		UnsetDedupID: true,
		SetKeys:      true,
		IDKeys:       []string{"(ocolc)" + source},
		Updated:      st.Timestamp(),
	})
	require.NoError(t, err)

	got, err := st.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DedupID)
	assert.Nil(t, got.ISBNKeys)
	assert.Equal(t, []string{"(ocolc)" + source}, got.IDKeys)

	// the key index follows the arrays
	old, err := st.FindRecord(ctx, store.RecordFilter{KeyType: models.KeyTypeISBN, KeyValue: "9780000" + source})
	require.NoError(t, err)
	assert.Nil(t, old)
	byID, err := st.FindRecord(ctx, store.RecordFilter{KeyType: models.KeyTypeID, KeyValue: "(ocolc)" + source})
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, rec.ID, byID.ID)
}

func TestStore_DedupGroups(t *testing.T) {
	st, source := newStore(t)
	ctx := t.Context()

	group := &models.DedupGroup{
		ID:      uuid.NewString(),
		IDs:     []string{source + ".1", source + ".2"},
		Changed: st.Timestamp(),
	}
	require.NoError(t, st.SaveDedup(ctx, group))

	got, err := st.FindDedup(ctx, store.GroupFilter{ContainsID: source + ".2", Deleted: store.Bool(false)})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, group.ID, got.ID)
	assert.Equal(t, group.IDs, got.IDs)

	group.IDs = nil
	group.Deleted = true
	group.Changed = st.Timestamp().Add(time.Second)
	require.NoError(t, st.SaveDedup(ctx, group))

	got, err = st.GetDedup(ctx, group.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Deleted)
	assert.Empty(t, got.IDs)

	live, err := st.FindDedup(ctx, store.GroupFilter{ContainsID: source + ".2", Deleted: store.Bool(false)})
	require.NoError(t, err)
	assert.Nil(t, live)
}
