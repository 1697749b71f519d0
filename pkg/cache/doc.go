// Package cache stores extracted browser and driver binaries on disk,
// keyed by (version, platform).
//
// # Layout
//
// The cache root contains one directory per entry:
//
//	<root>/<version>/<platform>/
//	    chrome-<platform>/...        extracted browser archive
//	    chromedriver-<platform>/...  extracted driver archive
//	    .complete                    completeness marker
//
// The marker is written only after every archive has been fully
// extracted. A reader that finds the marker may therefore trust the
// entry without further validation; a reader that does not find it
// re-downloads over the same directory. Entries are never deleted or
// mutated after creation (cache growth is accepted); Clear wipes the
// whole root.
//
// # Concurrency
//
// Concurrent EnsureDownloaded calls for the same key are collapsed
// into a single download and extraction via singleflight; callers for
// different keys proceed independently. This serialization is
// in-process only. Separate processes sharing one cache root
// coordinate solely through the completeness marker, which is
// best-effort: both may download, both end with identical bytes.
package cache
