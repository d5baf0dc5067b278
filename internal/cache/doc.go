// Package cache defines the disk-backed module store. Every remote locator maps
// to <CacheRoot>/deps/<scheme>/<host>/<sha256(path)> for the module body plus a
// sibling "<same>.metadata.json" record holding the fetched URL and response
// headers. The Deriver computes that layout as a pure function of the locator,
// the Store reads and writes both artifacts (each file via temp file + rename),
// and the Policy decides from a ReloadDirective whether an entry is reused.
// The traversal engine and the mirror server depend on this package instead of
// touching the cache directory directly.
package cache
