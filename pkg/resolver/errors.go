package resolver

import "errors"

var (
	// ErrVersionNotFound indicates an exact-version request named a
	// version the catalog does not carry for the running platform.
	ErrVersionNotFound = errors.New("version not found")

	// ErrChannelUnavailable indicates the catalog has no current build
	// for the requested release channel.
	ErrChannelUnavailable = errors.New("channel unavailable")

	// ErrCatalog indicates the catalog itself could not be queried or
	// returned a malformed response. Resolution is never retried
	// internally; callers decide whether to retry.
	ErrCatalog = errors.New("catalog query failed")
)
