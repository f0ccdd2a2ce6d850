package constants

import "time"

// File and directory permissions.
const (
	// CacheDirPerm is the permission for the predicate cache directory.
	CacheDirPerm = 0750

	// CacheFilePerm is the permission for predicate cache files.
	CacheFilePerm = 0600

	// ConfigDirPerm is the permission for CLI configuration directories.
	ConfigDirPerm = 0750
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for login and logout.
	ShortHTTPTimeout = 10 * time.Second
)

// Service defaults.
const (
	// DefaultBaseURL is the production Space-Track endpoint.
	DefaultBaseURL = "https://www.space-track.org/"

	// DefaultUserAgent is sent unless the config overrides it.
	DefaultUserAgent = "spacetrack-go"

	// ApplicationName names the per-user cache directory.
	ApplicationName = "spacetrack"
)

// Endpoint paths, relative to the base URL.
const (
	PathLogin  = "ajaxauth/login"
	PathLogout = "ajaxauth/logout"

	// PathQueryFormat is filled with controller and class.
	PathQueryFormat = "%s/query/class/%s"

	// PathModeldefFormat is filled with controller and class.
	PathModeldefFormat = "%s/modeldef/class/%s"
)

// Rate limits published by Space-Track: fewer than 30 requests per minute
// and 300 requests per hour.
const (
	PerMinuteLimit = 30
	PerHourLimit   = 300

	PerMinuteKey  = "st_req_min"
	PerHourKey    = "st_req_hr"
	AdditionalKey = "st_req_custom"
)

// RateLimitViolationMarker appears in the body of the HTTP 500 returned when
// the server-side query rate limit is exceeded.
const RateLimitViolationMarker = "violated your query rate limit"

// ServerMessagePrefix separates the HTTP status line from the message the
// server returned.
const ServerMessagePrefix = "\nSpace-Track response:\n"

// Predicate cache format.
const (
	// CacheVersion is bumped whenever the on-disk layout changes.
	CacheVersion = 1

	// PredicateCacheExpiry bounds the age of an on-disk entry.
	PredicateCacheExpiry = 24 * time.Hour

	// CacheFilePrefix and CacheFileSuffix bracket the hashed key.
	CacheFilePrefix = "predicates-"
	CacheFileSuffix = ".json"
	LockFileSuffix  = ".lock"

	// CacheKeyLength is the number of hex digits kept from the key hash.
	CacheKeyLength = 16
)

// Streaming.
const (
	// ChunkSize is the read size for chunked iteration.
	ChunkSize = 100 * 1024

	// LockPollInterval is the retry delay while polling for a file lock.
	LockPollInterval = 50 * time.Millisecond
)
