package resolvers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurebot/relay/internal/backend"
	"github.com/procurebot/relay/internal/nlu"
)

type fakeBackend struct {
	reply backend.Reply
	err   error

	gotPO     string
	gotPR     string
	gotVendor backend.VendorRequest
	calls     int
}

func (f *fakeBackend) POStatus(_ context.Context, po string) (backend.Reply, error) {
	f.calls++
	f.gotPO = po
	return f.reply, f.err
}

func (f *fakeBackend) PRApprover(_ context.Context, pr string) (backend.Reply, error) {
	f.calls++
	f.gotPR = pr
	return f.reply, f.err
}

func (f *fakeBackend) VendorAvailability(_ context.Context, req backend.VendorRequest) (backend.Reply, error) {
	f.calls++
	f.gotVendor = req
	return f.reply, f.err
}

func TestChain_SelectFollowsPriority(t *testing.T) {
	chain := Default(&fakeBackend{})

	r, ok := chain.Select(nlu.Slots{
		nlu.FlagPOStatus:           "true",
		nlu.FlagPRApprover:         "true",
		nlu.FlagVendorAvailability: "true",
	})
	require.True(t, ok)
	assert.Equal(t, "po_status", r.Name())

	r, ok = chain.Select(nlu.Slots{
		nlu.FlagPOStatus:           "false",
		nlu.FlagPRApprover:         "true",
		nlu.FlagVendorAvailability: "true",
	})
	require.True(t, ok)
	assert.Equal(t, "pr_approver", r.Name())

	r, ok = chain.Select(nlu.Slots{nlu.FlagVendorAvailability: true})
	require.True(t, ok)
	assert.Equal(t, "vendor_availability", r.Name())

	_, ok = chain.Select(nlu.Slots{nlu.FlagPOStatus: "false"})
	assert.False(t, ok)
	_, ok = chain.Select(nil)
	assert.False(t, ok)
}

func TestPOStatus(t *testing.T) {
	cases := []struct {
		name  string
		reply backend.Reply
		want  string
	}{
		{"status lower-cased", backend.Reply{"status": "Approved"}, "Your PO status is: approved"},
		{"exception verbatim", backend.Reply{"exception": "PO not found"}, "PO not found"},
		{"no data", backend.Reply{}, NoDataMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fb := &fakeBackend{reply: tc.reply}
			got, err := NewPOStatus(fb).Resolve(context.Background(),
				nlu.Slots{nlu.SlotPONumber: "4500012"}, "Your PO status is: ")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, "4500012", fb.gotPO)
		})
	}
}

func TestPOStatus_MissingSlot(t *testing.T) {
	fb := &fakeBackend{}
	_, err := NewPOStatus(fb).Resolve(context.Background(), nlu.Slots{}, "x")
	require.ErrorIs(t, err, ErrMissingSlot)
	assert.Contains(t, err.Error(), nlu.SlotPONumber)
	assert.Zero(t, fb.calls)
}

func TestPOStatus_BackendError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewPOStatus(&fakeBackend{err: boom}).Resolve(context.Background(),
		nlu.Slots{nlu.SlotPONumber: "1"}, "x")
	require.ErrorIs(t, err, boom)
}

func TestPRApprover(t *testing.T) {
	cases := []struct {
		name     string
		expected any
		reply    backend.Reply
		want     string
	}{
		{"expected matches", "Jane Doe", backend.Reply{"pr_approver": "jane doe"}, "Yes.Approver is jane doe"},
		{"expected differs", "Jane Doe", backend.Reply{"pr_approver": "John Smith"}, "No.Approver is John Smith"},
		{"no expected approver", nil, backend.Reply{"pr_approver": "John Smith"}, "Approver is John Smith"},
		{"exception verbatim", "Jane Doe", backend.Reply{"exception": "PR locked"}, "PR locked"},
		{"no data", nil, backend.Reply{"unexpected": 1}, NoDataMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slots := nlu.Slots{nlu.SlotPRNumber: "1000001"}
			if tc.expected != nil {
				slots[nlu.SlotPRApprover] = tc.expected
			}
			fb := &fakeBackend{reply: tc.reply}
			got, err := NewPRApprover(fb).Resolve(context.Background(), slots, "Approver is ")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, "1000001", fb.gotPR)
		})
	}
}

func vendorSlots(location string) nlu.Slots {
	return nlu.Slots{
		nlu.SlotLocation:      location,
		nlu.SlotSystemValue:   "ariba",
		nlu.SlotSupplierValue: "acme",
	}
}

func TestVendorAvailability_ListsCountries(t *testing.T) {
	fb := &fakeBackend{reply: backend.Reply{
		"countries": []any{"DE", "FR"},
		"DE":        true,
	}}
	got, err := NewVendorAvailability(fb).Resolve(context.Background(), vendorSlots("GERMANY"),
		" Vendor is available in: ")
	require.NoError(t, err)
	assert.Equal(t, "Yes available vendor is available in: germany,france", got)
	assert.Equal(t, backend.VendorRequest{System: "ariba", Supplier: "acme", Countries: "DE"}, fb.gotVendor)
}

func TestVendorAvailability_NotInRequestedCountry(t *testing.T) {
	fb := &fakeBackend{reply: backend.Reply{"countries": []any{"FR"}}}
	got, err := NewVendorAvailability(fb).Resolve(context.Background(), vendorSlots("Germany"), ". Found in: ")
	require.NoError(t, err)
	assert.Equal(t, "No, not available. found in: france", got)
}

func TestVendorAvailability_Exception(t *testing.T) {
	fb := &fakeBackend{reply: backend.Reply{"exception": "system unknown"}}
	got, err := NewVendorAvailability(fb).Resolve(context.Background(), vendorSlots("Germany"), "x")
	require.NoError(t, err)
	assert.Equal(t, "system unknown", got)
}

func TestVendorAvailability_NoData(t *testing.T) {
	fb := &fakeBackend{reply: backend.Reply{}}
	got, err := NewVendorAvailability(fb).Resolve(context.Background(), vendorSlots("Germany"), "x")
	require.NoError(t, err)
	assert.Equal(t, NoDataMessage, got)
}

func TestVendorAvailability_UnknownCountryFails(t *testing.T) {
	fb := &fakeBackend{}
	_, err := NewVendorAvailability(fb).Resolve(context.Background(), vendorSlots("Atlantis"), "x")
	require.ErrorIs(t, err, ErrCountryNotFound)
	assert.Zero(t, fb.calls)
}

func TestCountryIndex(t *testing.T) {
	idx := DefaultCountries()

	code, ok := idx.Code("india")
	require.True(t, ok)
	assert.Equal(t, "IN", code)

	name, ok := idx.Name("fr")
	require.True(t, ok)
	assert.Equal(t, "France", name)

	_, ok = idx.Code("Atlantis")
	assert.False(t, ok)
}
