// Package pagecache caches rendered GET responses by request path and
// removes them again when a write makes a page stale.
//
// Keys are derived from the request path alone, so a synthetic request
// built from a path maps to the same key as a browser request for it.
// Every key carries a generation counter: Invalidate bumps it, and the
// middleware only stores a freshly rendered page if the generation it saw
// before rendering is still current. A render racing an invalidation is
// therefore dropped instead of repopulating the cache with stale content.
package pagecache
