// Package pubsub fans committed engine events out to the two logical
// channels per symbol from spec §6: book.<symbol> and trades.<symbol>.
package pubsub

import (
	"github.com/cbasnet001/order-matching-system/internal/engine"
)

// Publisher is satisfied by engine.Publisher.
type Publisher interface {
	engine.Publisher
}
