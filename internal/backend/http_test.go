package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	errx "github.com/procurebot/relay/internal/core/error"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(Config{Endpoint: srv.URL}, srv.Client())
	require.NoError(t, err)
	return c
}

func TestPOStatus_PostsNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/poStatus", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "4500012", body["po_number"])
		_, _ = w.Write([]byte(`{"status":"APPROVED"}`))
	})

	reply, err := c.POStatus(context.Background(), "4500012")
	require.NoError(t, err)
	status, ok := reply.String(KeyStatus)
	require.True(t, ok)
	require.Equal(t, "APPROVED", status)
	require.False(t, reply.Has(KeyException))
}

func TestPRApprover_PostsNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prApprover", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "1000001", body["pr_number"])
		_, _ = w.Write([]byte(`{"pr_approver":"Jane Doe"}`))
	})

	reply, err := c.PRApprover(context.Background(), "1000001")
	require.NoError(t, err)
	approver, ok := reply.String(KeyApprover)
	require.True(t, ok)
	require.Equal(t, "Jane Doe", approver)
}

func TestVendorAvailability_PostsTriple(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/vendorAvailability", r.URL.Path)
		var body VendorRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, VendorRequest{System: "ariba", Supplier: "acme", Countries: "DE"}, body)
		_, _ = w.Write([]byte(`{"DE":"yes","countries":["DE","FR"]}`))
	})

	reply, err := c.VendorAvailability(context.Background(), VendorRequest{System: "ariba", Supplier: "acme", Countries: "DE"})
	require.NoError(t, err)
	require.True(t, reply.Has("DE"))
	codes, ok := reply.Strings(KeyCountries)
	require.True(t, ok)
	require.Equal(t, []string{"DE", "FR"}, codes)
}

func TestPOStatus_ExceptionOn500IsReturned(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"exception":"PO 42 not found"}`))
	})

	reply, err := c.POStatus(context.Background(), "42")
	require.NoError(t, err)
	msg, ok := reply.String(KeyException)
	require.True(t, ok)
	require.Equal(t, "PO 42 not found", msg)
}

func TestPost_Non2xxWithoutJSONIsBackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.POStatus(context.Background(), "1")
	require.Error(t, err)
	require.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestPost_Non2xxWithoutKnownKeyIsBackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	})

	_, err := c.PRApprover(context.Background(), "1")
	require.Error(t, err)
	require.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
}

func TestPost_NullBodyIsEmptyReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	reply, err := c.POStatus(context.Background(), "1")
	require.NoError(t, err)
	require.Empty(t, reply)
}

func TestReply_StringsFromCommaList(t *testing.T) {
	r := Reply{KeyCountries: "DE, FR,,IN"}
	codes, ok := r.Strings(KeyCountries)
	require.True(t, ok)
	require.Equal(t, []string{"DE", "FR", "IN"}, codes)

	_, ok = Reply{}.Strings(KeyCountries)
	require.False(t, ok)
}
