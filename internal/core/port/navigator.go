package port

// Navigator performs a full, one-way navigation to the target URL. Once
// Navigate returns nil the transition is committed and cannot be cancelled
// by the caller; an error means the navigation never started.
type Navigator interface {
	Navigate(targetURL string) error
}
