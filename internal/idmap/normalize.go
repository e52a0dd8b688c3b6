// Package idmap translates biological identifiers between the naming schemes
// of a UniProt id-mapping reference table.
package idmap

import "strings"

// Normalize strips an isoform suffix from a canonical accession, so that
// P50053-1 and P50053-2 both become P50053. Ids without a '-' are returned
// unchanged.
func Normalize(id string) string {
	if i := strings.IndexByte(id, '-'); i >= 0 {
		return id[:i]
	}
	return id
}
