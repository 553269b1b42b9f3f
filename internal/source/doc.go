// Package source resolves settings sources into plain mappings. A file source
// contributes its "defaults" section merged with the section named after the
// active environment.
package source
