// Package ids issues the sortable identifiers used as primary keys for
// branches, customers, buildings, reports, documents and acceptance records.
package ids

import "github.com/oklog/ulid/v2"

// New returns a fresh ULID. ULIDs sort by creation time, which keeps
// listing queries index-friendly without a separate created_at sort key.
func New() string {
	return ulid.Make().String()
}
