package types

import (
	"time"

	"github.com/google/uuid"
)

// LoadID identifies one published registry snapshot.
// UUIDv7 so ids sort by publication time in logs and stats.
type LoadID string

// NewLoadID generates a UUIDv7 load identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewLoadID() LoadID {
	return LoadID(uuid.Must(uuid.NewV7()).String())
}

// ParseLoadID validates and converts a string to LoadID.
func ParseLoadID(s string) (LoadID, error) {
	_, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return LoadID(s), nil
}

// LoadIDTime extracts the timestamp embedded in a UUIDv7 load id.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func LoadIDTime(id LoadID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
