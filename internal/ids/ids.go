package ids

import "github.com/segmentio/ksuid"

// New returns a k-sortable unique ID used for sessions and object keys.
func New() string {
	return ksuid.New().String()
}
