// Package resolvers completes a detected intent with one backend lookup and
// formats the final chat reply.
package resolvers

import (
	"context"
	"errors"
	"fmt"

	"github.com/procurebot/relay/internal/backend"
	"github.com/procurebot/relay/internal/nlu"
)

// NoDataMessage is the reply when the backend returns neither a result nor an exception.
const NoDataMessage = "Data is not available for given details."

var (
	ErrMissingSlot     = errors.New("required slot missing")
	ErrCountryNotFound = errors.New("country not found")
)

// Resolver handles one intent. Business outcomes, including backend
// exceptions, come back as a reply with a nil error.
type Resolver interface {
	Name() string
	// Flag is the intent flag in context.response that selects this resolver.
	Flag() string
	Resolve(ctx context.Context, slots nlu.Slots, template string) (string, error)
}

// Chain is an ordered list of resolvers. The first one whose flag is set wins.
type Chain []Resolver

// Default returns the resolvers in priority order: PO status, PR approver,
// vendor availability.
func Default(client backend.Client) Chain {
	return Chain{
		NewPOStatus(client),
		NewPRApprover(client),
		NewVendorAvailability(client),
	}
}

// Select returns the first resolver whose flag is set in slots.
func (c Chain) Select(slots nlu.Slots) (Resolver, bool) {
	if slots == nil {
		return nil, false
	}
	for _, r := range c {
		if slots.Flag(r.Flag()) {
			return r, true
		}
	}
	return nil, false
}

func requireSlot(slots nlu.Slots, name string) (string, error) {
	v, err := slots.Require(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingSlot, err)
	}
	return v, nil
}

// fallback covers the two non-success reply shapes.
func fallback(reply backend.Reply) string {
	if exc, ok := reply.String(backend.KeyException); ok {
		return exc
	}
	return NoDataMessage
}
