package blockcypher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tarancss/simpliance/lib/chain"
)

// mockHandler serves canned BlockCypher-style payloads.
func mockHandler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasPrefix(r.URL.Path, "/addrs/1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"):
		rw.Write([]byte(`{"address":"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa","balance":5000000000,
			"txs":[{"hash":"aa","confirmed":"2014-03-29T01:29:19Z"},{"hash":"bb","confirmed":"2014-03-30T10:00:00Z"},{"hash":"cc"}]}`))
	case strings.HasPrefix(r.URL.Path, "/addrs/"):
		rw.WriteHeader(http.StatusNotFound)
		rw.Write([]byte(`{"error": "Address not found"}`))
	case strings.HasPrefix(r.URL.Path, "/txs/f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16"):
		rw.Write([]byte(`{"hash":"f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16","fees":0,
			"confirmed":"2009-01-12T03:30:25Z","inputs":[{"output_index":0}],"outputs":[{"value":1000000000}]}`))
	case strings.HasPrefix(r.URL.Path, "/txs/"):
		rw.WriteHeader(http.StatusBadRequest)
		rw.Write([]byte(`{"error": "Transaction not valid"}`))
	default:
		rw.WriteHeader(http.StatusNotFound)
	}
}

func TestAddressFull(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	c := New(mock.URL, "")

	info, err := c.AddressFull(context.Background(), "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	if err != nil {
		t.Errorf("err:%e", err)
	}
	if info.Balance != 5000000000 {
		t.Errorf("balance does not match:%d", info.Balance)
	}
	// two of the three txs carry a confirmed stamp
	if n := info.ConfirmedTxs(); n != 2 {
		t.Errorf("expected 2 confirmed txs but got %d", n)
	}
}

func TestAddressFullNotFound(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	c := New(mock.URL, "")

	if _, err := c.AddressFull(context.Background(), "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"); !errors.Is(err, chain.ErrNotFound) {
		t.Errorf("expected ErrNotFound but got err:%e", err)
	}
}

func TestTransaction(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	c := New(mock.URL, "")

	tx, err := c.Transaction(context.Background(), "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16")
	if err != nil {
		t.Errorf("err:%e", err)
	}
	if tx.Hash != "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16" || len(tx.Outputs) != 1 {
		t.Errorf("tx does not match:%+v", tx)
	}
}

func TestTransactionUpstreamError(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	defer mock.Close()

	c := New(mock.URL, "")

	_, err := c.Transaction(context.Background(), "not-a-hash")
	if !errors.Is(err, chain.ErrUpstream) {
		t.Errorf("expected ErrUpstream but got err:%e", err)
	}
	if err != nil && !strings.Contains(err.Error(), "Transaction not valid") {
		t.Errorf("expected upstream message in err:%e", err)
	}
}
