package sequence

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/models"
)

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC) }
}

func TestServiceOrderGenerator_SequentialNoGaps(t *testing.T) {
	gen := NewServiceOrderGenerator(NewMemoryCounter(15), fixedClock(2025))
	ctx := context.Background()

	var got []string
	for i := 0; i < 5; i++ {
		so, err := gen.Next(ctx)
		require.NoError(t, err)
		got = append(got, so)
	}
	assert.Equal(t, []string{
		"IPS0016TT2025", "IPS0017TT2025", "IPS0018TT2025", "IPS0019TT2025", "IPS0020TT2025",
	}, got)
}

func TestServiceOrderGenerator_YearRolloverKeepsCounting(t *testing.T) {
	year := 2025
	gen := NewServiceOrderGenerator(NewMemoryCounter(0), func() time.Time { return fixedClock(year)() })
	ctx := context.Background()

	first, err := gen.Next(ctx)
	require.NoError(t, err)
	year = 2026
	second, err := gen.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, "IPS0001TT2025", first)
	assert.Equal(t, "IPS0002TT2026", second)
	assert.Equal(t, "IPS12345TT2025", FormatServiceOrder(12345, 2025))
}

func TestMemoryCounter_Concurrent(t *testing.T) {
	counter := NewMemoryCounter(0)
	const workers, perWorker = 8, 50

	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v, err := counter.Next(context.Background())
				assert.NoError(t, err)
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for i := int64(1); i <= workers*perWorker; i++ {
		assert.True(t, seen[i], "missing %d", i)
	}
}

func TestRedisCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	counter := &RedisCounter{Client: client, Key: ServiceOrderKey}
	require.NoError(t, counter.Seed(ctx, 15))
	// seeding twice must not rewind an existing sequence
	require.NoError(t, counter.Seed(ctx, 0))

	gen := NewServiceOrderGenerator(counter, fixedClock(2025))
	so, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "IPS0016TT2025", so)

	v, err := counter.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(17), v)

	mr.Close()
	_, err = counter.Next(ctx)
	assert.Error(t, err)
}

// Integration test (requires running MongoDB)
func TestMongoCounter_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	defer client.Disconnect(context.Background())

	coll := client.Database("test_freight").Collection("counters")
	require.NoError(t, coll.Drop(ctx))

	counter := &MongoCounter{Collection: coll, Name: ServiceOrderKey}
	require.NoError(t, counter.Seed(ctx, 3))
	v, err := counter.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
}

func TestNextDMTICorrelative(t *testing.T) {
	dmti := func(id, date string) models.DMTI { return models.DMTI{ID: id, RegistrationDate: date} }

	tests := []struct {
		name     string
		existing []models.DMTI
		input    DMTIInput
		expected string
	}{
		{
			name:     "2025 starts at the seed",
			input:    DMTIInput{RegistrationDate: "2025-04-01", StartingCustoms: "Acajutla"},
			expected: "2025AcajutlaSV0234700428",
		},
		{
			name:     "other years start at one",
			input:    DMTIInput{RegistrationDate: "2026-01-10", StartingCustoms: "San Bartolo"},
			expected: "2026SanBartoloSV0234700001",
		},
		{
			name: "continues after the highest same-year sequence",
			existing: []models.DMTI{
				dmti("2025AcajutlaSV0234700430", "2025-02-01"),
				dmti("2025ElAmatilloSV0234700512", "2025-03-01"),
				dmti("2024AcajutlaSV0234709999", "2024-12-31"),
			},
			input:    DMTIInput{RegistrationDate: "2025-05-01", StartingCustoms: "El-Amatillo"},
			expected: "2025ElAmatilloSV0234700513",
		},
		{
			name: "legacy long ids and non numeric suffixes are ignored",
			existing: []models.DMTI{
				dmti("3f2b9c1e-7a4d-4e8f-9b1a-2c3d4e5f6a7b-00900", "2026-02-01"),
				dmti("2026AcajutlaSV02347ABCDE", "2026-02-01"),
			},
			input:    DMTIInput{RegistrationDate: "2026-03-01", StartingCustoms: "Acajutla"},
			expected: "2026AcajutlaSV0234700001",
		},
		{
			name:     "customs punctuation is stripped",
			input:    DMTIInput{RegistrationDate: "2027-07-07", StartingCustoms: "La Hachadura (02)"},
			expected: "2027LaHachadura02SV0234700001",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextDMTICorrelative(tt.existing, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNextDMTICorrelative_Invalid(t *testing.T) {
	_, err := NextDMTICorrelative(nil, DMTIInput{RegistrationDate: "", StartingCustoms: "Acajutla"})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = NextDMTICorrelative(nil, DMTIInput{RegistrationDate: "2025-01-01", StartingCustoms: " -- "})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}
