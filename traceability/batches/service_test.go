package batches

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"agrochain/internal/models"
	"agrochain/storage/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = log.New(io.Discard, "", 0)

func newService() (*Service, *store.MemoryStore) {
	st := store.NewMemoryStore(testLogger)
	return NewService(st, testLogger), st
}

func TestGenerateCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.True(t, IsGeneratedCode(code), code)
		assert.NotContains(t, code[2:], "I")
		assert.NotContains(t, code[2:], "O")
		seen[code] = true
	}
	// 34^8 codes; a collision in 500 draws would point at a broken source
	assert.Len(t, seen, 500)
}

func TestIsGeneratedCode(t *testing.T) {
	assert.True(t, IsGeneratedCode("B-7K2M9QXA"))
	assert.False(t, IsGeneratedCode("B-7K2M9QX"))
	assert.False(t, IsGeneratedCode("B-7K2M9QXO"))
	assert.False(t, IsGeneratedCode("b-7K2M9QXA"))
	assert.False(t, IsGeneratedCode("B-TEST0001X"))
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newService()
	farmer := "farmer-1"

	b, err := svc.Create(context.Background(), CreateInput{CropType: "Mango", TotalQuantity: 500, FarmerID: &farmer})
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.True(t, IsGeneratedCode(b.BatchCode))
	assert.Equal(t, "kg", b.Unit)
	assert.Equal(t, models.StatusGrowing, b.CurrentStatus)
	assert.False(t, b.CreatedAt.IsZero())

	list, err := svc.ListByFarmer(context.Background(), farmer)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService()
	var verr *models.ValidationError

	_, err := svc.Create(context.Background(), CreateInput{CropType: "  "})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "crop_type", verr.Field)

	_, err = svc.Create(context.Background(), CreateInput{CropType: "Maize", TotalQuantity: -1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "total_quantity", verr.Field)
}

func TestCreateExplicitCodeIsStoredVerbatim(t *testing.T) {
	svc, _ := newService()

	b, err := svc.Create(context.Background(), CreateInput{BatchCode: "B-TEST0001", CropType: "Tomato"})
	require.NoError(t, err)
	assert.Equal(t, "B-TEST0001", b.BatchCode)

	_, err = svc.Create(context.Background(), CreateInput{BatchCode: "B-TEST0001", CropType: "Tomato"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestCreateRetriesOnCodeCollision(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Create(context.Background(), CreateInput{BatchCode: "B-AAAAAAAA", CropType: "Beans"})
	require.NoError(t, err)

	codes := []string{"B-AAAAAAAA", "B-AAAAAAAA", "B-BBBBBBBB"}
	calls := 0
	svc.newCode = func() (string, error) {
		c := codes[calls]
		calls++
		return c, nil
	}

	b, err := svc.Create(context.Background(), CreateInput{CropType: "Beans"})
	require.NoError(t, err)
	assert.Equal(t, "B-BBBBBBBB", b.BatchCode)
	assert.Equal(t, 3, calls)
}

func TestCreateGivesUpAfterMaxAttempts(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Create(context.Background(), CreateInput{BatchCode: "B-CCCCCCCC", CropType: "Beans"})
	require.NoError(t, err)

	calls := 0
	svc.newCode = func() (string, error) {
		calls++
		return "B-CCCCCCCC", nil
	}
	_, err = svc.Create(context.Background(), CreateInput{CropType: "Beans"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.Equal(t, maxCodeAttempts, calls)

	svc.newCode = func() (string, error) { return "", errors.New("entropy exhausted") }
	_, err = svc.Create(context.Background(), CreateInput{CropType: "Beans"})
	assert.EqualError(t, err, "entropy exhausted")
}

func TestFindByCodeOrID(t *testing.T) {
	svc, _ := newService()
	b, err := svc.Create(context.Background(), CreateInput{CropType: "Avocado"})
	require.NoError(t, err)

	byCode, err := svc.Find(context.Background(), b.BatchCode)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byCode.ID)

	byID, err := svc.Find(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BatchCode, byID.BatchCode)

	_, err = svc.Find(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateStatusAcceptsAnyKnownStatus(t *testing.T) {
	svc, st := newService()
	b, err := svc.Create(context.Background(), CreateInput{CropType: "Coffee"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(context.Background(), b.ID, models.StatusSold))
	require.NoError(t, svc.UpdateStatus(context.Background(), b.ID, models.StatusGrowing))

	got, err := st.GetBatchByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusGrowing, got.CurrentStatus)

	var verr *models.ValidationError
	assert.ErrorAs(t, svc.UpdateStatus(context.Background(), b.ID, "lost"), &verr)
	assert.ErrorIs(t, svc.UpdateStatus(context.Background(), "missing", models.StatusSold), store.ErrNotFound)
}

func TestUpdateLocation(t *testing.T) {
	svc, _ := newService()
	b, err := svc.Create(context.Background(), CreateInput{CropType: "Tea"})
	require.NoError(t, err)

	lat, lng := -0.42, 36.95
	require.NoError(t, svc.UpdateLocation(context.Background(), b.ID, "Nyeri Depot", &lat, &lng))
	got, err := svc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nyeri Depot", got.CurrentLocation)
	require.NotNil(t, got.LocationLng)
	assert.Equal(t, lng, *got.LocationLng)

	assert.ErrorIs(t, svc.UpdateLocation(context.Background(), "missing", "x", nil, nil), store.ErrNotFound)
}
