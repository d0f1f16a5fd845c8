// Package cache memoizes duration queries in a bounded in-memory LRU so
// repeated length lookups for the same sentence skip the vendor round-trip.
package cache
