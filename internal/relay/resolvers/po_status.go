package resolvers

import (
	"context"
	"strings"

	"github.com/procurebot/relay/internal/backend"
	"github.com/procurebot/relay/internal/nlu"
)

type POStatus struct {
	client backend.Client
}

func NewPOStatus(client backend.Client) *POStatus {
	return &POStatus{client: client}
}

func (r *POStatus) Name() string { return "po_status" }
func (r *POStatus) Flag() string { return nlu.FlagPOStatus }

func (r *POStatus) Resolve(ctx context.Context, slots nlu.Slots, template string) (string, error) {
	po, err := requireSlot(slots, nlu.SlotPONumber)
	if err != nil {
		return "", err
	}
	reply, err := r.client.POStatus(ctx, po)
	if err != nil {
		return "", err
	}
	if status, ok := reply.String(backend.KeyStatus); ok {
		return template + strings.ToLower(status), nil
	}
	return fallback(reply), nil
}
