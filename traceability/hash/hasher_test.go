package hash

import (
	"encoding/base64"
	"regexp"
	"testing"
	"time"

	"agrochain/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func ptr(v float64) *float64 { return &v }

func sampleInput() Input {
	return Input{
		BatchID:   "batch-1",
		EventType: models.EventHarvest,
		Title:     "Harvest complete",
		Lat:       ptr(-1.2921),
		Lng:       ptr(36.8219),
	}
}

func TestHashIsDeterministicForSameInstant(t *testing.T) {
	h := New(ModeSHA256)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := h.Hash(sampleInput(), at)
	second := h.Hash(sampleInput(), at)

	assert.Equal(t, first, second)
	assert.Regexp(t, hexPattern, first)
	assert.True(t, h.Tamperproof())
}

func TestHashChangesWithCoveredFields(t *testing.T) {
	h := New(ModeSHA256)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	base := h.Hash(sampleInput(), at)

	other := sampleInput()
	other.Title = "Harvest started"
	assert.NotEqual(t, base, h.Hash(other, at))

	assert.NotEqual(t, base, h.Hash(sampleInput(), at.Add(time.Nanosecond)))

	moved := sampleInput()
	moved.Lng = ptr(36.8)
	assert.NotEqual(t, base, h.Hash(moved, at))
}

func TestCanonicalFormat(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	got := Canonical(Input{BatchID: "b", EventType: models.EventPlanting, Title: "t"}, at)
	assert.Equal(t,
		`{"batch_id":"b","event_type":"planting","event_title":"t","timestamp":"2026-03-01T10:00:00Z","location":","}`,
		got)
}

func TestPlaceholderModeEncodesCanonicalString(t *testing.T) {
	h := New(ModePlaceholder)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	got := h.Hash(sampleInput(), at)
	decoded, err := base64.StdEncoding.DecodeString(got)
	require.NoError(t, err)
	assert.Equal(t, Canonical(sampleInput(), at), string(decoded))
	assert.False(t, h.Tamperproof())
}

func TestUnknownModeFallsBackToSHA256(t *testing.T) {
	assert.Equal(t, ModeSHA256, New("md5").Mode())
}

func TestInputFromEvent(t *testing.T) {
	ev := &models.TraceabilityEvent{
		BatchID:     "b1",
		EventType:   models.EventStorage,
		Title:       "Stored",
		Description: "not hashed",
		Location:    &models.Location{Lat: ptr(1), Lng: ptr(2)},
	}
	in := InputFromEvent(ev)
	assert.Equal(t, "b1", in.BatchID)
	assert.Equal(t, 1.0, *in.Lat)
	assert.Equal(t, 2.0, *in.Lng)
}
