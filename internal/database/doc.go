// Package database is the SQLite-backed Metadata Store for clipshare.
//
// It persists one entity, the Asset, keyed by an opaque UUID, and offers
// create, get, bulk-get-by-ID-set and the share token updates. Share token
// and expiry are always written or cleared in the same statement.
//
// The database runs in WAL mode so streaming handlers can read while
// uploads and merges write.
package database
