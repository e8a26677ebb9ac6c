package resolvers

import (
	"context"
	"strings"

	"github.com/procurebot/relay/internal/backend"
	"github.com/procurebot/relay/internal/nlu"
)

type PRApprover struct {
	client backend.Client
}

func NewPRApprover(client backend.Client) *PRApprover {
	return &PRApprover{client: client}
}

func (r *PRApprover) Name() string { return "pr_approver" }
func (r *PRApprover) Flag() string { return nlu.FlagPRApprover }

// Resolve answers "who approves PR n", or "is X the approver of PR n" when the
// user named an expected approver.
func (r *PRApprover) Resolve(ctx context.Context, slots nlu.Slots, template string) (string, error) {
	pr, err := requireSlot(slots, nlu.SlotPRNumber)
	if err != nil {
		return "", err
	}
	reply, err := r.client.PRApprover(ctx, pr)
	if err != nil {
		return "", err
	}

	actual, hasActual := reply.String(backend.KeyApprover)
	if !hasActual {
		return fallback(reply), nil
	}
	expected, hasExpected := slots.String(nlu.SlotPRApprover)
	if !hasExpected || expected == "" {
		return template + actual, nil
	}
	if strings.EqualFold(expected, actual) {
		return "Yes." + template + actual, nil
	}
	return "No." + template + actual, nil
}
