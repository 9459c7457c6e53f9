// Package hash computes the tamper-evidence fingerprint stamped on every
// traceability event.
//
// The fingerprint covers only the batch id, event type, title, insertion instant
// and "lat,lng" location. It does not cover the description, actor, photos or the
// type-specific details, so it identifies an event rather than proving the
// integrity of its full payload.
package hash

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"agrochain/internal/models"
)

// Mode selects how the canonical string is turned into a fingerprint
type Mode string

const (
	// ModeSHA256 emits the lowercase hex SHA-256 of the canonical string
	ModeSHA256 Mode = "sha256"
	// ModePlaceholder emits base64 of the canonical string. Not tamper-proof.
	ModePlaceholder Mode = "placeholder"
)

// Input is the subset of an event the fingerprint is computed over
type Input struct {
	BatchID   string
	EventType models.EventType
	Title     string
	Lat       *float64
	Lng       *float64
}

// InputFromEvent extracts the hashed fields of ev
func InputFromEvent(ev *models.TraceabilityEvent) Input {
	in := Input{BatchID: ev.BatchID, EventType: ev.EventType, Title: ev.Title}
	if ev.Location != nil {
		in.Lat = ev.Location.Lat
		in.Lng = ev.Location.Lng
	}
	return in
}

// canonical field order is fixed by the struct declaration
type canonical struct {
	BatchID   string `json:"batch_id"`
	EventType string `json:"event_type"`
	Title     string `json:"event_title"`
	Timestamp string `json:"timestamp"`
	Location  string `json:"location"`
}

// Hasher fingerprints events
type Hasher struct {
	mode Mode
}

// New returns a Hasher for mode; anything other than ModePlaceholder hashes with SHA-256
func New(mode Mode) *Hasher {
	if mode != ModePlaceholder {
		mode = ModeSHA256
	}
	return &Hasher{mode: mode}
}

// Mode returns the active mode
func (h *Hasher) Mode() Mode {
	return h.mode
}

// Tamperproof is false in placeholder mode
func (h *Hasher) Tamperproof() bool {
	return h.mode == ModeSHA256
}

// Hash fingerprints in as inserted at the instant at. It never fails.
func (h *Hasher) Hash(in Input, at time.Time) string {
	s := Canonical(in, at)
	if h.mode == ModePlaceholder {
		return base64.StdEncoding.EncodeToString([]byte(s))
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Canonical returns the serialized string that gets hashed
func Canonical(in Input, at time.Time) string {
	c := canonical{
		BatchID:   in.BatchID,
		EventType: string(in.EventType),
		Title:     in.Title,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Location:  formatCoord(in.Lat) + "," + formatCoord(in.Lng),
	}
	// Marshal of a struct of strings cannot fail
	b, _ := json.Marshal(c)
	return string(b)
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
