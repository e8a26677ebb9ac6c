package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/procurebot/relay/internal/nlu"
)

//go:embed template/nlu_prompt.txt
var nluSystemPrompt string

var intentDescriptions = map[string]string{
	"po_status":           "the user asks for the status of a purchase order (PO)",
	"pr_approver":         "the user asks who approves a purchase requisition (PR), or whether a named person does",
	"vendor_availability": "the user asks whether a supplier is available in a country for a system",
}

var slotDescriptions = []struct{ Name, Desc string }{
	{nlu.SlotPONumber, "purchase order number"},
	{nlu.SlotPRNumber, "purchase requisition number"},
	{nlu.SlotPRApprover, "expected approver's name"},
	{nlu.SlotSystemValue, "procurement system name"},
	{nlu.SlotSupplierValue, "supplier or vendor name"},
	{nlu.SlotLocation, "country name"},
}

// RenderSystem renders the system prompt through the eino prompt component so
// prompt callbacks fire.
func RenderSystem(ctx context.Context) (string, error) {
	var intents strings.Builder
	for _, s := range intentSpecs {
		fmt.Fprintf(&intents, "- %s: %s\n", s.Name, intentDescriptions[s.Name])
	}
	var slots strings.Builder
	for _, s := range slotDescriptions {
		fmt.Fprintf(&slots, "- %s: %s\n", s.Name, s.Desc)
	}

	// replace known tokens only; the template contains literal braces
	content := strings.NewReplacer(
		"{TD}", tupDelim,
		"{RD}", recDelim,
		"{CD}", endDelim,
		"{intents}", strings.TrimRight(intents.String(), "\n"),
		"{slots}", strings.TrimRight(slots.String(), "\n"),
	).Replace(nluSystemPrompt)

	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("nlu prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("nlu prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// userMessage wraps the utterance with the state carried in the prior context.
func userMessage(text string, prior nlu.Context) string {
	var b strings.Builder
	b.WriteString("<conversation_state>\n")
	if pending, _ := prior[KeyPendingIntent].(string); pending != "" {
		b.WriteString("pending_intent: " + pending + "\n")
	}
	if slots, ok := prior.Slots(); ok {
		known := map[string]any{}
		for k, v := range slots {
			if knownSlots[k] {
				known[k] = v
			}
		}
		if len(known) > 0 {
			if raw, err := json.Marshal(known); err == nil {
				b.WriteString("known_slots: " + string(raw) + "\n")
			}
		}
	}
	b.WriteString("</conversation_state>\n")
	b.WriteString("<current_message_to_analyze>\n")
	b.WriteString("UserMessage(" + text + ")\n")
	b.WriteString("</current_message_to_analyze>")
	return b.String()
}
