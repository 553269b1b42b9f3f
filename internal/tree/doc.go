// Package tree holds the materialized form of merged settings: an immutable
// tagged value over mappings, sequences and scalars, with dotted-path lookup
// that returns an Absent value instead of failing on unknown keys. It also
// provides the deep merge applied to plain decoded maps before they are
// materialized.
package tree
