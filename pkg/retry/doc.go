// Package retry re-runs operations that fail for transient reasons, with
// exponential or constant backoff and context cancellation.
//
// The storage layer uses it to ride out short lock contention, for example
// a SQLite database held by a running study session while another command
// records a visit:
//
//	cfg := retry.DefaultConfig()
//	cfg.RetryIf = isBusy
//	err := retry.Do(func() error {
//		return insert(key, value)
//	}, cfg)
//
// DefaultRetryIf never retries context errors, nor decode, configuration
// or unavailable-backend errors from pkg/errors.
package retry
