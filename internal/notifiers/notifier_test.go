package notifiers

import "github.com/Fullex26/noticehook/internal/store"

// Compile-time checks for the notifier and its recorder.
var (
	_ Notifier = (*Webhook)(nil)
	_ Recorder = (*store.Store)(nil)
)
