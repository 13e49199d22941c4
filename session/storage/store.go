// Package storage keeps session payloads keyed by session id. The engine only
// manages the id and its cookie; applications pick a Store for the data.
package storage

import "errors"

var ErrSessionNotFound = errors.New("session store: session not found")

type Store interface {
	Close() error
	Has(id string) bool
	Get(id string) (map[string]any, error)
	Save(id string, data map[string]any) error
	Delete(id string) error
	// Move re-keys the payload of oldID under newID, for id rotation.
	Move(oldID, newID string) error
}
