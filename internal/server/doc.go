// Package server hosts the Fiber HTTP service used by `modcache serve`: the
// request middleware chain (recover, request id, access log) and helpers shared
// by the route packages. Routes that touch the cache live in server/routes and
// receive their dependencies explicitly, so keep exports narrow.
package server
