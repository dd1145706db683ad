package entropy

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFixedBeaconIsStable(t *testing.T) {
	f := Fixed{1, 2, 3}
	if f.Beacon() != f.Beacon() {
		t.Fatal("expected fixed beacon to repeat")
	}
	if f.Beacon()[2] != 3 {
		t.Fatalf("expected byte 3, got %d", f.Beacon()[2])
	}
}

func TestNilClientFallsBackToCrypto(t *testing.T) {
	var c *Client
	if c.Enabled() {
		t.Fatal("nil client must not be enabled")
	}
	if NewClient("") != nil {
		t.Fatal("expected nil client for empty key")
	}
	a, b := c.Beacon(), c.Beacon()
	if a == b {
		t.Fatal("expected distinct crypto beacons")
	}
	if _, ok := FromClient(nil).(Crypto); !ok {
		t.Fatal("expected crypto source for disabled client")
	}
}

func TestClientUsesRandomOrgPool(t *testing.T) {
	blob := strings.Repeat("ab", 32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"jsonrpc":"2.0","result":{"random":{"data":["%s","%s","zz"]}},"id":1}`, blob, blob)
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL

	got := c.Beacon()
	if hex.EncodeToString(got[:]) != blob {
		t.Fatalf("expected pooled beacon %s, got %x", blob, got)
	}
	if len(c.pool) != 1 {
		t.Fatalf("expected 1 pooled beacon left (invalid blob skipped), got %d", len(c.pool))
	}
}

func TestClientFallsBackOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","error":{"message":"quota exceeded"},"id":1}`)
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL

	if c.Beacon() == ([32]byte{}) {
		t.Fatal("expected a non-zero fallback beacon")
	}
	if len(c.pool) != 0 {
		t.Fatalf("expected empty pool after API error, got %d", len(c.pool))
	}
}
