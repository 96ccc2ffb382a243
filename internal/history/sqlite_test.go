package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-scan-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	return store
}

func sampleRecord(id, name string) domain.ScanRecord {
	return domain.ScanRecord{
		ID:   id,
		Name: name,
		Date: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		Result: domain.AnalysisResult{
			FoodItems: []domain.FoodItem{
				{Name: name, ConfidenceRate: 0.95, NovaCategory: domain.NOVA3},
				{Name: "Salt", ConfidenceRate: 0.9, NovaCategory: domain.NOVA2},
			},
			NovaOverview: domain.NovaOverview{OverallCategory: domain.NOVA3, Source: "heuristic"},
			Nutrition:    domain.NutritionSummary{Calories: 250, Sugar: 12, Source: domain.SourceAI},
			Verdict:      domain.CAUTION,
			Timestamp:    time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		},
		ExtractedText: "Ingredients: sugar, salt",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "history-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)

	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	records := []domain.ScanRecord{
		sampleRecord("scan-2", "Bread"),
		sampleRecord("scan-1", "Sugar"),
	}

	err := store.Put(ctx, "session-1", records)
	require.NoError(t, err)

	got, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Order and classification survive the round trip.
	assert.Equal(t, "scan-2", got[0].ID)
	assert.Equal(t, "scan-1", got[1].ID)
	require.Len(t, got[0].Result.FoodItems, 2)
	assert.Equal(t, "Bread", got[0].Result.FoodItems[0].Name)
	assert.Equal(t, domain.NOVA3, got[0].Result.FoodItems[0].NovaCategory)
	assert.Equal(t, domain.NOVA2, got[0].Result.FoodItems[1].NovaCategory)
	assert.Equal(t, domain.CAUTION, got[0].Result.Verdict)
}

func TestSQLiteStore_Get_NotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_Put_Replaces(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session-1", []domain.ScanRecord{
		sampleRecord("old-1", "Sugar"),
		sampleRecord("old-2", "Salt"),
	}))
	require.NoError(t, store.Put(ctx, "session-1", []domain.ScanRecord{
		sampleRecord("new-1", "Bread"),
	}))

	got, err := store.Get(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new-1", got[0].ID)
}

func TestSQLiteStore_SessionsIsolated(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session-a", []domain.ScanRecord{sampleRecord("a-1", "Sugar")}))
	require.NoError(t, store.Put(ctx, "session-b", []domain.ScanRecord{sampleRecord("b-1", "Salt")}))

	gotA, err := store.Get(ctx, "session-a")
	require.NoError(t, err)
	gotB, err := store.Get(ctx, "session-b")
	require.NoError(t, err)

	assert.Equal(t, "a-1", gotA[0].ID)
	assert.Equal(t, "b-1", gotB[0].ID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
