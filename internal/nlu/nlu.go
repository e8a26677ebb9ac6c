// Package nlu defines the dialogue engine contract used by the relay and the
// shape of the context the engine threads through a conversation.
package nlu

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyOutput is returned when a turn needs a canned output line and the
// engine returned none.
var ErrEmptyOutput = errors.New("nlu output text is empty")

// Intent flags carried in context.response.
const (
	FlagPOStatus           = "intent_po_status"
	FlagPRApprover         = "intent_pr_approver"
	FlagVendorAvailability = "intent_vendor_availability"
)

// Slots carried in context.response.
const (
	SlotPONumber      = "po_number"
	SlotPRNumber      = "pr_number"
	SlotPRApprover    = "pr_approver"
	SlotSystemValue   = "system_value"
	SlotSupplierValue = "supplier_value"
	SlotLocation      = "location"
)

// ResponseKey is the context key holding intent flags and slots.
const ResponseKey = "response"

// Engine sends one utterance plus the prior context to the dialogue engine.
// A nil prior context starts a new conversation.
type Engine interface {
	Message(ctx context.Context, text string, prior Context) (*Response, error)
}

// Response is what the engine returns for one utterance.
type Response struct {
	Output  Output  `json:"output"`
	Context Context `json:"context"`
}

// Output holds the canned reply lines.
type Output struct {
	Text []string `json:"text"`
}

// FirstText returns the first canned line, used as a message template.
func (r *Response) FirstText() (string, error) {
	if r == nil || len(r.Output.Text) == 0 {
		return "", ErrEmptyOutput
	}
	return r.Output.Text[0], nil
}

// JoinedText concatenates every canned line, one per line.
func (r *Response) JoinedText() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, line := range r.Output.Text {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// Context is the opaque dialogue state returned by the engine. Only the
// response sub-map is interpreted by the relay; everything else is echoed back.
type Context map[string]any

// Slots returns the response sub-map, if present and an object.
func (c Context) Slots() (Slots, bool) {
	if c == nil {
		return nil, false
	}
	raw, ok := c[ResponseKey]
	if !ok || raw == nil {
		return nil, false
	}
	switch v := raw.(type) {
	case map[string]any:
		return Slots(v), true
	case Slots:
		return v, true
	default:
		return nil, false
	}
}

// Slots is the response sub-map of a Context.
type Slots map[string]any

// Flag reports whether an intent flag is set. The string "true" and the
// boolean true both count.
func (s Slots) Flag(name string) bool {
	switch v := s[name].(type) {
	case string:
		return v == "true"
	case bool:
		return v
	default:
		return false
	}
}

// String returns a slot as a string. ok is false when the slot is absent or null.
func (s Slots) String(name string) (string, bool) {
	raw, ok := s[name]
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return fmt.Sprint(v), true
	}
}

// Require returns a slot or an error naming the missing slot.
func (s Slots) Require(name string) (string, error) {
	v, ok := s.String(name)
	if !ok {
		return "", fmt.Errorf("slot %q is missing from context", name)
	}
	return v, nil
}
