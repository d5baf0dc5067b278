// Package traverse drives a dependency traversal: starting from one root URL it
// walks a LIFO work stack, applies the import map, fetches or reuses each
// module through the cache, extracts its dependency specifiers and resolves
// them against the importing module. Processing is strictly sequential and the
// first error aborts the run; files written before the failure stay on disk.
package traverse
