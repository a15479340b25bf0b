package storage

import "github.com/oldominion/indexer/internal/model"

// Storage defines a sink for token events.
type Storage interface {
	PutEventBatch(events []model.TokenEvent) error
}
