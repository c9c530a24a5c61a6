package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/agritrace/agritrace/internal/domain"
	"github.com/agritrace/agritrace/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestBatch creates a test batch with unique trace and batch IDs
func buildTestBatch(suffix string) *schema.Batch {
	return &schema.Batch{
		TraceID:          fmt.Sprintf("TR01TEST%s", suffix),
		BatchID:          fmt.Sprintf("BT01TEST%s", suffix),
		ProductName:      "Basmati Rice",
		Quantity:         250,
		QuantityUnit:     domain.UnitKilograms,
		ProducerID:       uuid.NewString(),
		ProductionAt:     time.Now().UTC().Truncate(time.Second),
		LocationState:    "Punjab",
		LocationDistrict: "Amritsar",
	}
}

// buildTestMedia creates a test media row for the given trace
func buildTestMedia(traceID string, mediaType domain.MediaType) schema.Media {
	return schema.Media{
		TraceID:    traceID,
		Type:       mediaType,
		URL:        fmt.Sprintf("https://blob.example.com/agritrace/%s/%s_1700000000.jpg", traceID, mediaType.PathKeyword()),
		CapturedAt: time.Now().UTC().Truncate(time.Second),
	}
}

// buildTestActivity creates a test activity row
func buildTestActivity(role domain.Role, activityType domain.ActivityType, ts time.Time, extra any) schema.Activity {
	var raw datatypes.JSON
	if extra != nil {
		b, _ := json.Marshal(extra)
		raw = datatypes.JSON(b)
	}
	return schema.Activity{
		ActorRole:    role,
		ActorID:      uuid.NewString(),
		ActivityType: activityType,
		Timestamp:    ts.UTC().Truncate(time.Second),
		ExtraData:    raw,
	}
}

// =============================================================================
// Test: CreateBatchWithMedia
// =============================================================================

func testCreateBatchWithMedia(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("creates batch and media atomically", func(t *testing.T) {
		batch := buildTestBatch("CREATE1")
		media := []schema.Media{
			buildTestMedia(batch.TraceID, domain.MediaProductPhoto),
			buildTestMedia(batch.TraceID, domain.MediaWeighingPhoto),
		}

		err := store.CreateBatchWithMedia(ctx, batch, media)
		require.NoError(t, err)
		assert.NotZero(t, batch.ID)

		got, err := store.GetBatchByTraceID(ctx, batch.TraceID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, batch.BatchID, got.BatchID)
		assert.Equal(t, "Basmati Rice", got.ProductName)
		assert.Equal(t, domain.UnitKilograms, got.QuantityUnit)

		rows, err := store.ListMediaByTraceID(ctx, batch.TraceID)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, domain.MediaProductPhoto, rows[0].Type)
		assert.Equal(t, domain.MediaWeighingPhoto, rows[1].Type)
	})

	t.Run("creates batch with no media", func(t *testing.T) {
		batch := buildTestBatch("CREATE2")

		err := store.CreateBatchWithMedia(ctx, batch, nil)
		require.NoError(t, err)

		rows, err := store.ListMediaByTraceID(ctx, batch.TraceID)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("duplicate trace ID returns collision error", func(t *testing.T) {
		batch := buildTestBatch("DUP1")
		require.NoError(t, store.CreateBatchWithMedia(ctx, batch, nil))

		dup := buildTestBatch("DUP1OTHER")
		dup.TraceID = batch.TraceID

		err := store.CreateBatchWithMedia(ctx, dup, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrCollision)
	})

	t.Run("duplicate batch ID returns collision error", func(t *testing.T) {
		batch := buildTestBatch("DUP2")
		require.NoError(t, store.CreateBatchWithMedia(ctx, batch, nil))

		dup := buildTestBatch("DUP2OTHER")
		dup.BatchID = batch.BatchID

		err := store.CreateBatchWithMedia(ctx, dup, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrCollision)
	})
}

// =============================================================================
// Test: Lookups
// =============================================================================

func testLookups(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("GetBatchByTraceID returns nil for unknown trace", func(t *testing.T) {
		got, err := store.GetBatchByTraceID(ctx, "TR01DOESNOTEXIST")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("TraceExists reflects persistence", func(t *testing.T) {
		batch := buildTestBatch("EXISTS1")
		require.NoError(t, store.CreateBatchWithMedia(ctx, batch, nil))

		ok, err := store.TraceExists(ctx, batch.TraceID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.TraceExists(ctx, "TR01DOESNOTEXIST")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

// =============================================================================
// Test: CreateActivities
// =============================================================================

func testCreateActivities(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("appends activities to an existing trace", func(t *testing.T) {
		batch := buildTestBatch("ACT1")
		require.NoError(t, store.CreateBatchWithMedia(ctx, batch, nil))

		base := time.Now().UTC().Truncate(time.Second)
		rows := []schema.Activity{
			buildTestActivity(domain.RoleBroker, domain.ActivityProductReceived, base, map[string]string{"remarks": "good condition"}),
			buildTestActivity(domain.RoleBroker, domain.ActivityStorageStart, base.Add(time.Minute), nil),
		}

		created, err := store.CreateActivities(ctx, batch.TraceID, rows)
		require.NoError(t, err)
		require.Len(t, created, 2)
		for _, a := range created {
			assert.NotZero(t, a.ID)
			assert.Equal(t, batch.TraceID, a.TraceID)
		}
	})

	t.Run("unknown trace returns error without writing", func(t *testing.T) {
		rows := []schema.Activity{
			buildTestActivity(domain.RoleBroker, domain.ActivityProductReceived, time.Now(), nil),
		}

		_, err := store.CreateActivities(ctx, "TR01DOESNOTEXIST", rows)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnknownTrace)

		got, err := store.ListActivitiesByTraceID(ctx, "TR01DOESNOTEXIST")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("empty activity slice is a no-op", func(t *testing.T) {
		created, err := store.CreateActivities(ctx, "TR01DOESNOTEXIST", nil)
		require.NoError(t, err)
		assert.Empty(t, created)
	})
}

// =============================================================================
// Test: Activity queries
// =============================================================================

func testActivityQueries(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("ListActivitiesByTraceID orders by timestamp ascending", func(t *testing.T) {
		batch := buildTestBatch("ORDER1")
		require.NoError(t, store.CreateBatchWithMedia(ctx, batch, nil))

		base := time.Now().UTC().Truncate(time.Second)
		// Insert out of chronological order
		rows := []schema.Activity{
			buildTestActivity(domain.RoleMNC, domain.ActivityProcessing, base.Add(2*time.Hour), nil),
			buildTestActivity(domain.RoleBroker, domain.ActivityProductReceived, base, nil),
			buildTestActivity(domain.RoleMNC, domain.ActivityQAInspection, base.Add(time.Hour), map[string]string{"qa_status": "passed"}),
		}
		_, err := store.CreateActivities(ctx, batch.TraceID, rows)
		require.NoError(t, err)

		got, err := store.ListActivitiesByTraceID(ctx, batch.TraceID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, domain.ActivityProductReceived, got[0].ActivityType)
		assert.Equal(t, domain.ActivityQAInspection, got[1].ActivityType)
		assert.Equal(t, domain.ActivityProcessing, got[2].ActivityType)
	})

	t.Run("LatestActivityByType returns most recent match", func(t *testing.T) {
		batch := buildTestBatch("LATEST1")
		require.NoError(t, store.CreateBatchWithMedia(ctx, batch, nil))

		base := time.Now().UTC().Truncate(time.Second)
		rows := []schema.Activity{
			buildTestActivity(domain.RoleRetailer, domain.ActivityPlacedOnShelf, base, nil),
			buildTestActivity(domain.RoleRetailer, domain.ActivityPlacedOnShelf, base.Add(time.Hour), nil),
		}
		_, err := store.CreateActivities(ctx, batch.TraceID, rows)
		require.NoError(t, err)

		got, err := store.LatestActivityByType(ctx, batch.TraceID, domain.ActivityPlacedOnShelf)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, base.Add(time.Hour), got.Timestamp.UTC())
	})

	t.Run("LatestActivityByType returns nil when none match", func(t *testing.T) {
		batch := buildTestBatch("LATEST2")
		require.NoError(t, store.CreateBatchWithMedia(ctx, batch, nil))

		got, err := store.LatestActivityByType(ctx, batch.TraceID, domain.ActivityProductSold)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

// =============================================================================
// Test: Media queries
// =============================================================================

func testMediaQueries(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("MediaExistsForURL matches stored URLs", func(t *testing.T) {
		batch := buildTestBatch("MEDIA1")
		media := []schema.Media{buildTestMedia(batch.TraceID, domain.MediaProductPhoto)}
		require.NoError(t, store.CreateBatchWithMedia(ctx, batch, media))

		ok, err := store.MediaExistsForURL(ctx, media[0].URL)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.MediaExistsForURL(ctx, "https://blob.example.com/agritrace/orphan/product_0.jpg")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

// RunStoreTests runs the full store test suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store Store)
	}{
		{"CreateBatchWithMedia", testCreateBatchWithMedia},
		{"Lookups", testLookups},
		{"CreateActivities", testCreateActivities},
		{"ActivityQueries", testActivityQueries},
		{"MediaQueries", testMediaQueries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
