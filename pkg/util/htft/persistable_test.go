package htft

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadMatchRecords(t *testing.T) {
	s := memoryStore(t)

	records := []*MatchRecord{
		{Seq: 1, MatchID: "B", RawResultText: "?\n\n?"},
		{Seq: 0, MatchID: "A", RawResultText: resultText("1x0", "2x0")},
		{Seq: 2, MatchID: "C", RawResultText: resultText("oth", "3x3")},
	}
	require.NoError(t, s.SaveMatchRecords(records))

	loaded, err := s.LoadMatchRecords()
	require.NoError(t, err)
	require.Len(t, loaded, 3)

	assert.Equal(t, "A", loaded[0].MatchID)
	assert.Equal(t, "1x0", loaded[0].FirstHalfScore)
	assert.Equal(t, "2x0", loaded[0].FullTimeScore)
	assert.False(t, loaded[1].IsValid())
	assert.Equal(t, "?\n\n?", loaded[1].RawResultText)
	assert.Equal(t, OtherLabel, loaded[2].FirstHalfScore)
}

func TestSaveUpdatesExistingRecord(t *testing.T) {
	s := memoryStore(t)

	r := &MatchRecord{Seq: 0, MatchID: "A", RawResultText: resultText("1x0", "2x0")}
	require.NoError(t, s.Save(r))
	r.RawResultText = resultText("0x0", "0x1")
	require.NoError(t, s.Save(r))

	found, err := s.FindWhere(&MatchRecord{}, "matchId = ?", "A")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "0x1", found[0].(*MatchRecord).FullTimeScore)
}

func TestBulkSaveRollsBackOnError(t *testing.T) {
	s := memoryStore(t)

	err := s.SaveMatchRecords([]*MatchRecord{
		{Seq: 0, MatchID: "A", RawResultText: resultText("1x0", "2x0")},
		{Seq: 1, MatchID: ""},
	})
	require.Error(t, err)

	loaded, err := s.LoadMatchRecords()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestReplaceMatchRecordsKeepsOldRowsOnFailure(t *testing.T) {
	s := memoryStore(t)
	require.NoError(t, s.SaveMatchRecords([]*MatchRecord{
		{Seq: 0, MatchID: "A", RawResultText: resultText("1x0", "2x0")},
		{Seq: 1, MatchID: "B", RawResultText: resultText("0x0", "0x0")},
	}))

	err := s.ReplaceMatchRecords([]*MatchRecord{
		{Seq: 0, MatchID: "C", RawResultText: resultText("1x1", "2x1")},
		{Seq: 1, MatchID: ""},
	})
	require.Error(t, err)

	loaded, err := s.LoadMatchRecords()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "A", loaded[0].MatchID)

	require.NoError(t, s.ReplaceMatchRecords([]*MatchRecord{{Seq: 0, MatchID: "C", RawResultText: resultText("1x1", "2x1")}}))
	loaded, err = s.LoadMatchRecords()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "C", loaded[0].MatchID)
}

func TestDeleteAll(t *testing.T) {
	s := memoryStore(t)
	require.NoError(t, s.Save(&MatchRecord{Seq: 0, MatchID: "A"}))

	require.NoError(t, s.DeleteAll(&MatchRecord{}))

	exists, err := s.Exists(&MatchRecord{Seq: 0})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpenStoreReadOnlyNeverCreates(t *testing.T) {
	target := filepath.Join(t.TempDir(), "made", "here.db")

	_, err := OpenStoreReadOnly(target)
	assert.ErrorIs(t, err, ErrStoreNotFound)

	_, statErr := os.Stat(filepath.Dir(target))
	assert.True(t, os.IsNotExist(statErr), "directory must not be created")

	_, err = OpenStoreReadOnly(t.TempDir())
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

func TestOpenStoreReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.db")
	w, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, w.Save(&MatchRecord{Seq: 0, MatchID: "A", RawResultText: resultText("1x0", "2x0")}))
	require.NoError(t, w.Close())

	r, err := OpenStoreReadOnly(path)
	require.NoError(t, err)
	defer r.Close()

	loaded, err := r.LoadMatchRecords()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Error(t, r.Save(&MatchRecord{Seq: 1, MatchID: "B"}))
}

func TestStoresAreIndependentUnderConcurrency(t *testing.T) {
	dir := t.TempDir()
	paths := map[string]string{}
	for _, id := range []string{"A", "B"} {
		path := filepath.Join(dir, id+".db")
		s, err := OpenStore(path)
		require.NoError(t, err)
		require.NoError(t, s.SaveMatchRecords([]*MatchRecord{{Seq: 0, MatchID: id, RawResultText: resultText("1x0", "2x0")}}))
		require.NoError(t, s.Close())
		paths[id] = path
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		id := []string{"A", "B"}[i%2]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := OpenStoreReadOnly(paths[id])
			if err != nil {
				errs <- err
				return
			}
			defer s.Close()
			loaded, err := s.LoadMatchRecords()
			if err != nil {
				errs <- err
				return
			}
			if len(loaded) != 1 || loaded[0].MatchID != id {
				errs <- fmt.Errorf("store %s returned %v", id, loaded)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestGenerateCreateTableSQL(t *testing.T) {
	sql := generateCreateTableSQL(&MatchRecord{}, "match_record")

	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS match_record")
	assert.Contains(t, sql, "seq INTEGER NOT NULL")
	assert.Contains(t, sql, "PRIMARY KEY (seq)")
	assert.Len(t, generateIndexSQL(&MatchRecord{}, "match_record"), 3)
}
