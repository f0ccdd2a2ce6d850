package constants

import "errors"

// CLI configuration errors.
var (
	ErrNoIdentity          = errors.New("no identity configured, set --identity or SPACETRACK_IDENTITY")
	ErrNoPassword          = errors.New("no password configured and stdin is not a terminal")
	ErrInvalidArgument     = errors.New("invalid argument, expected key=value")
	ErrUnknownOutputFormat = errors.New("unknown output format")
)

// Rate limit store errors.
var (
	ErrStoreConflict   = errors.New("rate limit store update conflicted too many times")
	ErrInvalidQuota    = errors.New("quota limit and period must be positive")
	ErrRedisClientNil  = errors.New("redis client is required")
	ErrJetStreamNil    = errors.New("jetstream context is required")
	ErrMalformedWindow = errors.New("malformed rate limit window")
)
