/*
Package cache provides the caches used by the API.

Store is a bounded, in-process LRU cache with optional per-entry expiry and
pattern based invalidation. It memoises read-heavy list and tree queries and
is purged by write operations once they have been committed.

The memcache client is optional and shared between processes. It only holds
small, slowly changing lookups (such as the user behind a session) and is
silently disabled when no memcached host is configured.

Eventual consistency of the cached items is promised, but nothing more.
*/
package cache
