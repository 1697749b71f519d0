package cache

import "errors"

var (
	// ErrDownload indicates an archive could not be fetched: transport
	// failure, a non-2xx status, or an empty body. No completeness
	// marker is written, so a retry starts from scratch.
	ErrDownload = errors.New("artifact download failed")

	// ErrExtraction indicates a fetched archive could not be unpacked
	// into the cache entry directory. No completeness marker is
	// written, so a retry starts from scratch.
	ErrExtraction = errors.New("artifact extraction failed")
)
