package notifiers

import "github.com/Fullex26/noticehook/pkg/models"

// Notifier forwards notices to an external channel
type Notifier interface {
	// Name returns the notifier identifier
	Name() string
	// Handle processes one notice. It never returns an error and never panics;
	// failures are logged.
	Handle(notice models.Notice)
	// Test sends a test notification to verify configuration
	Test() error
}

// Recorder keeps the outcome of each dispatch attempt
type Recorder interface {
	SaveDelivery(d models.Delivery) error
}
