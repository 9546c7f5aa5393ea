package storage

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebmatecho/sipsa-tracker/utils"
)

func newTestTracker(t *testing.T) (*Tracker, *LocalStore) {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	tr := NewTracker(store, "files_tracker.csv", utils.NewLoggerTo(io.Discard))
	tr.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }
	return tr, store
}

func TestTrackerLoadMissingObject(t *testing.T) {
	tr, _ := newTestTracker(t)
	require.NoError(t, tr.Load(t.Context()))
	assert.Empty(t, tr.Entries())
}

func TestTrackerAddIsUniquePerFile(t *testing.T) {
	tr, _ := newTestTracker(t)

	assert.True(t, tr.Add("week_1_a.xls", "http://x/a.xls"))
	assert.False(t, tr.Add("week_1_a.xls", "http://x/other.xls"))
	assert.True(t, tr.Has("week_1_a.xls"))
	assert.False(t, tr.IsLoaded("week_1_a.xls"))
	assert.Len(t, tr.Entries(), 1)
	assert.Equal(t, "http://x/a.xls", tr.Entries()[0].Link)
}

func TestTrackerMarkLoadedPersistsImmediately(t *testing.T) {
	tr, store := newTestTracker(t)
	ctx := t.Context()

	tr.Add("week_1_a.xls", "http://x/a.xls")
	tr.Add("week_2_b.xls", "http://x/b.xls")
	require.NoError(t, tr.MarkLoaded(ctx, "week_2_b.xls"))

	data, err := store.Get(ctx, "files_tracker.csv")
	require.NoError(t, err)
	assert.Equal(t,
		"file,link,date_added,loaded\n"+
			"week_1_a.xls,http://x/a.xls,2024-03-05,no\n"+
			"week_2_b.xls,http://x/b.xls,2024-03-05,yes\n",
		string(data))

	reloaded := NewTracker(store, "files_tracker.csv", utils.NewLoggerTo(io.Discard))
	require.NoError(t, reloaded.Load(ctx))
	assert.True(t, reloaded.IsLoaded("week_2_b.xls"))
	assert.False(t, reloaded.IsLoaded("week_1_a.xls"))
	assert.True(t, reloaded.Has("week_1_a.xls"))
}

func TestTrackerMarkLoadedWithoutEntry(t *testing.T) {
	tr, _ := newTestTracker(t)
	require.NoError(t, tr.MarkLoaded(t.Context(), "week_9_manual.xlsx"))
	assert.True(t, tr.IsLoaded("week_9_manual.xlsx"))
}

func TestTrackerLoadedNeverReverts(t *testing.T) {
	tr, _ := newTestTracker(t)
	require.NoError(t, tr.MarkLoaded(t.Context(), "week_1_a.xls"))
	tr.Add("week_1_a.xls", "http://x/a.xls")
	assert.True(t, tr.IsLoaded("week_1_a.xls"))
}

func TestDecodeTrackerLegacyColumns(t *testing.T) {
	legacy := "file,link,date_added,rds_load\n" +
		"week_3_Sem_9ene__15ene_2016.xls,http://x/3.xls,2021-08-01,yes\n" +
		"week_4_Sem_16ene__22ene_2016.xls,http://x/4.xls,2021-08-01 12:30:00,no\n" +
		",,,\n"

	entries, err := decodeTracker(strings.NewReader(legacy))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.True(t, entries[0].Loaded)
	assert.False(t, entries[1].Loaded)
	assert.Equal(t, time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC), entries[1].DateAdded)
}

func TestDecodeTrackerRequiresFileColumn(t *testing.T) {
	_, err := decodeTracker(strings.NewReader("name,link\na,b\n"))
	assert.Error(t, err)
}

func TestTrackerConcurrentReaders(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.Add("week_1_a.xls", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tr.IsLoaded("week_1_a.xls")
				_ = tr.Has("week_1_a.xls")
			}
		}()
	}
	require.NoError(t, tr.MarkLoaded(t.Context(), "week_1_a.xls"))
	wg.Wait()
	assert.True(t, tr.IsLoaded("week_1_a.xls"))
}
