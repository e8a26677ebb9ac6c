package resolvers

import (
	"context"
	"fmt"
	"strings"

	"github.com/procurebot/relay/internal/backend"
	"github.com/procurebot/relay/internal/nlu"
)

const (
	headlineAvailable   = "Yes available"
	headlineUnavailable = "No, not available"
)

type VendorAvailability struct {
	client    backend.Client
	countries *CountryIndex
}

func NewVendorAvailability(client backend.Client) *VendorAvailability {
	return &VendorAvailability{client: client, countries: DefaultCountries()}
}

func (r *VendorAvailability) Name() string { return "vendor_availability" }
func (r *VendorAvailability) Flag() string { return nlu.FlagVendorAvailability }

func (r *VendorAvailability) Resolve(ctx context.Context, slots nlu.Slots, template string) (string, error) {
	location, err := requireSlot(slots, nlu.SlotLocation)
	if err != nil {
		return "", err
	}
	system, err := requireSlot(slots, nlu.SlotSystemValue)
	if err != nil {
		return "", err
	}
	supplier, err := requireSlot(slots, nlu.SlotSupplierValue)
	if err != nil {
		return "", err
	}

	code, ok := r.countries.Code(location)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrCountryNotFound, location)
	}

	reply, err := r.client.VendorAvailability(ctx, backend.VendorRequest{
		System:    system,
		Supplier:  supplier,
		Countries: code,
	})
	if err != nil {
		return "", err
	}

	available, ok := reply.Strings(backend.KeyCountries)
	if !ok {
		return fallback(reply), nil
	}

	var b strings.Builder
	b.WriteString(template)
	for _, c := range available {
		if name, ok := r.countries.Name(c); ok {
			b.WriteString(name)
			b.WriteString(",")
		}
	}
	message := strings.TrimSuffix(b.String(), ",")

	headline := headlineUnavailable
	if _, listed := reply[code]; listed {
		headline = headlineAvailable
	}
	return headline + strings.ToLower(message), nil
}
