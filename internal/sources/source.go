package sources

import (
	"context"

	"github.com/Fullex26/noticehook/pkg/models"
)

// Source is anything that feeds notices into the bus
type Source interface {
	// Name returns the source identifier
	Name() string
	// Start begins producing notices. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully stops the source
	Stop() error
}

// Publisher is the part of the event bus a source needs
type Publisher interface {
	Publish(topic models.Topic, notice models.Notice)
}
