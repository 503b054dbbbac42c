package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"lendoracle/native/lending/verify"
)

var observationPrefix = []byte("obs/")

// Archive keeps the raw observation behind each verification report so the
// report can be replayed after a strategy change.
type Archive struct {
	db Database
}

// NewArchive wraps db.
func NewArchive(db Database) (*Archive, error) {
	if db == nil {
		return nil, errors.New("storage: archive database required")
	}
	return &Archive{db: db}, nil
}

// Put stores obs under the report ID it produced.
func (a *Archive) Put(id uuid.UUID, obs verify.Observation) error {
	payload, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("storage: encode observation %s: %w", id, err)
	}
	return a.db.Put(observationKey(id), payload)
}

// Get loads the observation archived under id.
func (a *Archive) Get(id uuid.UUID) (verify.Observation, error) {
	payload, err := a.db.Get(observationKey(id))
	if err != nil {
		return verify.Observation{}, fmt.Errorf("storage: load observation %s: %w", id, err)
	}
	var obs verify.Observation
	if err := json.Unmarshal(payload, &obs); err != nil {
		return verify.Observation{}, fmt.Errorf("storage: decode observation %s: %w", id, err)
	}
	return obs, nil
}

// IDs lists the archived report IDs.
func (a *Archive) IDs() ([]uuid.UUID, error) {
	keys, err := a.db.Keys(observationPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.ParseBytes(key[len(observationPrefix):])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func observationKey(id uuid.UUID) []byte {
	return append(append([]byte(nil), observationPrefix...), id.String()...)
}
