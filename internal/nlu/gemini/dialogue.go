package gemini

import (
	"github.com/procurebot/relay/internal/nlu"
)

// Context keys owned by this engine. Everything else in the context is echoed.
const (
	KeyConversationID = "conversation_id"
	KeyPendingIntent  = "pending_intent"
)

const greeting = "Hi! I can tell you the status of a PO, who approves a PR, or whether a vendor is available in a country."

type intentSpec struct {
	Name     string
	Flag     string
	Required []string
	Template string
}

// intentSpecs lists the intents the engine can complete, with the slots each
// one needs before its flag is raised.
var intentSpecs = []intentSpec{
	{
		Name:     "po_status",
		Flag:     nlu.FlagPOStatus,
		Required: []string{nlu.SlotPONumber},
		Template: "The status of your PO is: ",
	},
	{
		Name:     "pr_approver",
		Flag:     nlu.FlagPRApprover,
		Required: []string{nlu.SlotPRNumber},
		Template: "The approver of the PR is ",
	},
	{
		Name:     "vendor_availability",
		Flag:     nlu.FlagVendorAvailability,
		Required: []string{nlu.SlotSystemValue, nlu.SlotSupplierValue, nlu.SlotLocation},
		Template: " for the supplier. It is available in: ",
	},
}

var slotQuestions = map[string]string{
	nlu.SlotPONumber:      "Which PO number should I look up?",
	nlu.SlotPRNumber:      "Which PR number should I look up?",
	nlu.SlotSystemValue:   "Which system is the supplier registered in?",
	nlu.SlotSupplierValue: "Which supplier do you mean?",
	nlu.SlotLocation:      "Which country should I check?",
}

var knownSlots = map[string]bool{
	nlu.SlotPONumber:      true,
	nlu.SlotPRNumber:      true,
	nlu.SlotPRApprover:    true,
	nlu.SlotSystemValue:   true,
	nlu.SlotSupplierValue: true,
	nlu.SlotLocation:      true,
}

func lookupIntent(name string) (intentSpec, bool) {
	for _, s := range intentSpecs {
		if s.Name == name {
			return s, true
		}
	}
	return intentSpec{}, false
}

func (s intentSpec) missing(slots nlu.Slots) []string {
	var out []string
	for _, name := range s.Required {
		if v, ok := slots.String(name); !ok || v == "" {
			out = append(out, name)
		}
	}
	return out
}

// advance merges one analysis into the prior context. An intent flag is set
// only once every slot it needs is known; until then the intent stays pending
// and the reply asks for the first missing slot.
func advance(prior nlu.Context, a *Analysis, minConfidence float64, newID func() string) *nlu.Response {
	ctx := make(nlu.Context, len(prior)+2)
	for k, v := range prior {
		ctx[k] = v
	}
	if id, _ := ctx[KeyConversationID].(string); id == "" {
		ctx[KeyConversationID] = newID()
	}

	slots := nlu.Slots{}
	if prev, ok := prior.Slots(); ok {
		for k, v := range prev {
			if knownSlots[k] {
				slots[k] = v
			}
		}
	}
	for k, v := range a.Slots {
		if knownSlots[k] {
			slots[k] = v
		}
	}
	for _, s := range intentSpecs {
		slots[s.Flag] = "false"
	}

	pending, _ := ctx[KeyPendingIntent].(string)
	if it, ok := a.PrimaryIntent(minConfidence); ok {
		if _, known := lookupIntent(it.Name); known {
			pending = it.Name
		}
	}

	var text string
	spec, ok := lookupIntent(pending)
	switch {
	case !ok:
		delete(ctx, KeyPendingIntent)
		text = a.Reply
		if text == "" {
			text = greeting
		}
	case len(spec.missing(slots)) > 0:
		ctx[KeyPendingIntent] = spec.Name
		text = a.Reply
		if text == "" {
			text = slotQuestions[spec.missing(slots)[0]]
		}
	default:
		delete(ctx, KeyPendingIntent)
		slots[spec.Flag] = "true"
		text = spec.Template
	}

	ctx[nlu.ResponseKey] = map[string]any(slots)
	return &nlu.Response{
		Output:  nlu.Output{Text: []string{text}},
		Context: ctx,
	}
}
