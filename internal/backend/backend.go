// Package backend is the bot client for the procurement REST backend.
package backend

import (
	"context"
	"fmt"
	"strings"
)

// Reply keys returned by the backend.
const (
	KeyStatus    = "status"
	KeyException = "exception"
	KeyApprover  = "pr_approver"
	KeyCountries = "countries"
)

// Client is the set of backend lookups the relay performs.
type Client interface {
	POStatus(ctx context.Context, poNumber string) (Reply, error)
	PRApprover(ctx context.Context, prNumber string) (Reply, error)
	VendorAvailability(ctx context.Context, req VendorRequest) (Reply, error)
}

// VendorRequest is the body of a vendor availability lookup.
type VendorRequest struct {
	System    string `json:"system"`
	Supplier  string `json:"supplier"`
	Countries string `json:"countries"`
}

// Reply is a decoded backend JSON object. Callers branch on which keys exist.
type Reply map[string]any

// Has reports whether key is present and non-null.
func (r Reply) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns key as a string when present.
func (r Reply) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Strings returns key as a list of strings. A single string is split on commas.
func (r Reply) Strings(key string) ([]string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out, true
	case []string:
		return t, true
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
