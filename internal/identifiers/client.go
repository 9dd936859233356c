// Package identifiers holds the broker's value types: Client, Topic and
// Message. None of them have an independent lifecycle beyond the
// connection or message they represent.
package identifiers

import (
	"github.com/google/uuid"
)

// Client is an opaque, unforgeable subscriber identity. It is generated
// once when a subscribe request is accepted and lives exactly as long as
// that request's stream.
type Client uuid.UUID

// NewClient returns a fresh, globally unique Client id.
func NewClient() Client {
	return Client(uuid.New())
}

func (c Client) String() string {
	return uuid.UUID(c).String()
}

// Less gives Client a total order so it can be used as a deterministic
// map key for lookups and tests.
func (c Client) Less(other Client) bool {
	for i := range c {
		if c[i] != other[i] {
			return c[i] < other[i]
		}
	}
	return false
}
