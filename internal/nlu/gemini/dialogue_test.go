package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurebot/relay/internal/nlu"
)

func fixedID() string { return "conv-1" }

func TestAdvance_GreetsWithoutIntent(t *testing.T) {
	resp := advance(nil, &Analysis{}, 0.5, fixedID)

	first, err := resp.FirstText()
	require.NoError(t, err)
	assert.Equal(t, greeting, first)
	assert.Equal(t, "conv-1", resp.Context[KeyConversationID])

	slots, ok := resp.Context.Slots()
	require.True(t, ok)
	assert.False(t, slots.Flag(nlu.FlagPOStatus))
	assert.False(t, slots.Flag(nlu.FlagPRApprover))
	assert.False(t, slots.Flag(nlu.FlagVendorAvailability))
}

func TestAdvance_CompleteIntentRaisesFlag(t *testing.T) {
	resp := advance(nil, &Analysis{
		Intents: []Intent{{"po_status", 0.9}},
		Slots:   map[string]string{"po_number": "4500012"},
		Reply:   "Checking.",
	}, 0.5, fixedID)

	first, err := resp.FirstText()
	require.NoError(t, err)
	assert.Equal(t, "The status of your PO is: ", first)

	slots, ok := resp.Context.Slots()
	require.True(t, ok)
	assert.True(t, slots.Flag(nlu.FlagPOStatus))
	po, err := slots.Require(nlu.SlotPONumber)
	require.NoError(t, err)
	assert.Equal(t, "4500012", po)
	_, pending := resp.Context[KeyPendingIntent]
	assert.False(t, pending)
}

func TestAdvance_FillsSlotsAcrossTurns(t *testing.T) {
	first := advance(nil, &Analysis{
		Intents: []Intent{{"vendor_availability", 0.8}},
		Slots:   map[string]string{"supplier_value": "acme"},
	}, 0.5, fixedID)

	text, err := first.FirstText()
	require.NoError(t, err)
	assert.Equal(t, slotQuestions[nlu.SlotSystemValue], text)
	assert.Equal(t, "vendor_availability", first.Context[KeyPendingIntent])

	second := advance(first.Context, &Analysis{
		Slots: map[string]string{"system_value": "ariba", "location": "Germany"},
	}, 0.5, func() string { return "unused" })

	assert.Equal(t, "conv-1", second.Context[KeyConversationID])
	slots, ok := second.Context.Slots()
	require.True(t, ok)
	assert.True(t, slots.Flag(nlu.FlagVendorAvailability))
	for _, name := range []string{nlu.SlotSupplierValue, nlu.SlotSystemValue, nlu.SlotLocation} {
		_, err := slots.Require(name)
		assert.NoError(t, err, name)
	}
}

func TestAdvance_LowConfidenceIgnored(t *testing.T) {
	resp := advance(nil, &Analysis{
		Intents: []Intent{{"po_status", 0.2}},
		Slots:   map[string]string{"po_number": "1"},
		Reply:   "Could you rephrase?",
	}, 0.5, fixedID)

	text, err := resp.FirstText()
	require.NoError(t, err)
	assert.Equal(t, "Could you rephrase?", text)
	slots, _ := resp.Context.Slots()
	assert.False(t, slots.Flag(nlu.FlagPOStatus))
}

func TestAdvance_EchoesUnknownContextKeys(t *testing.T) {
	prior := nlu.Context{"conversation_id": "c-9", "system": map[string]any{"dialog_turn_counter": 2.0}}
	resp := advance(prior, &Analysis{}, 0.5, fixedID)
	assert.Equal(t, "c-9", resp.Context[KeyConversationID])
	assert.Equal(t, prior["system"], resp.Context["system"])
}
