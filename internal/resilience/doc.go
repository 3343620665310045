// Package resilience retries network operations under an explicit Policy.
//
// A Policy bounds the number of attempts, picks the wait between them
// (FixedBackoff, LinearBackoff, ExponentialBackoff) and classifies which
// errors are worth another try (IsTransient by default). Do runs an
// operation under a policy; Wrap binds the two for later calls.
package resilience
