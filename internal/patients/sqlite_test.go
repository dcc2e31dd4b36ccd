package patients

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heart-disease-predictor-server/internal/domain"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "patients.db"), time.Second, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteCreateThenGetRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	input := validInput()
	created, err := store.Create(ctx, input)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)

	// Every field equals the input; id and timestamp are storage-assigned.
	assert.Equal(t, input.Age, got.Age)
	assert.Equal(t, input.Sex, got.Sex)
	assert.Equal(t, input.Dataset, got.Dataset)
	assert.Equal(t, input.ChestPain, got.ChestPain)
	require.NotNil(t, got.RestingBP)
	assert.Equal(t, *input.RestingBP, *got.RestingBP)
	require.NotNil(t, got.Cholesterol)
	assert.Equal(t, *input.Cholesterol, *got.Cholesterol)
	assert.Equal(t, input.FastingBS, got.FastingBS)
	assert.Equal(t, input.RestingECG, got.RestingECG)
	require.NotNil(t, got.MaxHeartRate)
	assert.Equal(t, *input.MaxHeartRate, *got.MaxHeartRate)
	assert.Equal(t, input.ExerciseAngina, got.ExerciseAngina)
	require.NotNil(t, got.Oldpeak)
	assert.InDelta(t, *input.Oldpeak, *got.Oldpeak, 1e-9)
	assert.Equal(t, input.Slope, got.Slope)
	require.NotNil(t, got.MajorVessels)
	assert.Equal(t, *input.MajorVessels, *got.MajorVessels)
	assert.Equal(t, input.Thal, got.Thal)
	assert.Equal(t, input.Diagnosis, got.Diagnosis)
}

func TestSQLiteCreateStoresNullOptionals(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	input := validInput()
	input.RestingBP = nil
	input.Cholesterol = nil
	input.MaxHeartRate = nil
	input.Oldpeak = nil
	input.MajorVessels = nil

	created, err := store.Create(ctx, input)
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RestingBP)
	assert.Nil(t, got.Cholesterol)
	assert.Nil(t, got.MaxHeartRate)
	assert.Nil(t, got.Oldpeak)
	assert.Nil(t, got.MajorVessels)
}

func TestSQLiteIdentifiersAreDistinct(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	seen := make(map[int64]bool)
	for i := 0; i < 5; i++ {
		p, err := store.Create(ctx, validInput())
		require.NoError(t, err)
		assert.False(t, seen[p.ID], "identifier %d assigned twice", p.ID)
		seen[p.ID] = true
	}
}

func TestSQLiteListPagination(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		p, err := store.Create(ctx, validInput())
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	page, err := store.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[0], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	page, err = store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[2], page[0].ID)

	page, err = store.List(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, page)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSQLiteGetLatest(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.GetLatest(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	first, err := store.Create(ctx, validInput())
	require.NoError(t, err)
	second, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	// Force identical timestamps so the identifier tie-break decides.
	_, err = store.db.Exec(`UPDATE patients SET record_created_at = ?`, time.Now().UTC())
	require.NoError(t, err)

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.NotEqual(t, first.ID, latest.ID)
}

func TestSQLiteUpdatePartial(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	age := 55
	updated, err := store.Update(ctx, created.ID, &domain.PatientUpdate{Age: &age})
	require.NoError(t, err)

	// Only age changed; everything else keeps its prior value.
	assert.Equal(t, 55, updated.Age)
	assert.Equal(t, created.Sex, updated.Sex)
	assert.Equal(t, created.ChestPain, updated.ChestPain)
	require.NotNil(t, updated.Cholesterol)
	assert.Equal(t, *created.Cholesterol, *updated.Cholesterol)
	assert.Equal(t, created.Thal, updated.Thal)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())
}

func TestSQLiteUpdateEmptyIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	got, err := store.Update(ctx, created.ID, &domain.PatientUpdate{})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Age, got.Age)

	again, err := store.Update(ctx, created.ID, &domain.PatientUpdate{})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSQLiteUpdateUnknownPatient(t *testing.T) {
	store := newSQLiteStore(t)

	age := 55
	_, err := store.Update(context.Background(), 12345, &domain.PatientUpdate{Age: &age})
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestSQLiteUpdateRejectsInvalidEnum(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	badSex := domain.Sex("Robot")
	_, err = store.Update(ctx, created.ID, &domain.PatientUpdate{Sex: &badSex})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestSQLiteDeleteCascadesLogs(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, store.InsertLog(ctx, created.ID, "admitted"))
	require.NoError(t, store.InsertLog(ctx, created.ID, "assessed"))

	logs, err := store.CountLogs(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), logs)

	require.NoError(t, store.Delete(ctx, created.ID))

	_, err = store.Get(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))

	logs, err = store.CountLogs(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, logs)
}

func TestSQLiteDeleteUnknownPatient(t *testing.T) {
	store := newSQLiteStore(t)

	err := store.Delete(context.Background(), 54321)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}
