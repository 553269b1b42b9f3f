// Package registry owns named settings groups. Each group keeps an ordered
// list of sources; reloading a group resolves every source under the active
// environment, deep-merges the results in registration order and caches the
// materialized tree, so reads never merge.
//
// A failed reload keeps the last good tree of the group. Changing the active
// environment reloads every group.
package registry
