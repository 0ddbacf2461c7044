package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tarancss/simpliance/lib/chain/blockcypher"
	"github.com/tarancss/simpliance/lib/store"
)

// Well-formed addresses and hashes the mock explorer knows about.
const (
	knownAddr    = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	unknownAddr  = "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"
	uncachedAddr = "1CounterpartyXXXXXXXXXXXXXXXUWLpVr"
	knownTx      = "f4184fc596403b9d638783cf57adfe4c75c605f6356fbc91338530e9831e9e16"
	unknownTx    = "0000000000000000000000000000000000000000000000000000000000000000"
	invalidTx    = "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	limitedTx    = "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

// mockHandler serves canned explorer payloads for the addresses and hashes above.
func mockHandler(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasPrefix(r.URL.Path, "/addrs/"+knownAddr):
		rw.Write([]byte(`{"address":"` + knownAddr + `","balance":5000000000,
			"txs":[{"hash":"aa","confirmed":"2014-03-29T01:29:19Z"},{"hash":"bb","confirmed":"2014-03-30T10:00:00Z"},{"hash":"cc"}]}`))
	case strings.HasPrefix(r.URL.Path, "/txs/"+knownTx):
		rw.Write([]byte(`{"hash":"` + knownTx + `","fees":0,"confirmed":"2009-01-12T03:30:25Z",
			"inputs":[{"output_index":0}],"outputs":[{"value":1000000000}]}`))
	case strings.HasPrefix(r.URL.Path, "/txs/"+unknownTx), strings.HasPrefix(r.URL.Path, "/addrs/"):
		rw.WriteHeader(http.StatusNotFound)
		rw.Write([]byte(`{"error": "not found"}`))
	default:
		rw.WriteHeader(http.StatusBadRequest)
		rw.Write([]byte(`{"error": "Transaction not valid"}`))
	}
}

// memStore is an in-memory store.DB for tests.
type memStore struct {
	mu    sync.Mutex
	addrs map[string]store.Address
	txs   map[string]store.Transaction
}

func newMemStore() *memStore {
	return &memStore{addrs: map[string]store.Address{}, txs: map[string]store.Transaction{}}
}

func (m *memStore) GetAddress(ctx context.Context, address string) (store.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addrs[address]
	if !ok {
		return a, store.ErrAddrNotFound
	}
	return a, nil
}

func (m *memStore) AddAddress(ctx context.Context, a store.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrs[a.Addr] = a
	return nil
}

func (m *memStore) UpdateAddress(ctx context.Context, address string, balance int64, txCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addrs[address]
	if !ok {
		return store.ErrAddrNotFound
	}
	a.Balance, a.TxCount = balance, txCount
	m.addrs[address] = a
	return nil
}

func (m *memStore) GetTransaction(ctx context.Context, hash string) (store.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[hash]
	if !ok {
		return tx, store.ErrTxNotFound
	}
	return tx, nil
}

func (m *memStore) AddTransaction(ctx context.Context, tx store.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.Hash] = tx
	return nil
}

// stubLimiter allows or rejects every request according to its flag.
type stubLimiter struct {
	allow bool
}

func (l *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.allow, nil
}

func TestAPI(t *testing.T) {
	// start a mock explorer server
	mock := httptest.NewServer(http.HandlerFunc(mockHandler))
	t.Logf("Info: running tests against mock explorer in %s", mock.URL)
	defer mock.Close()

	mem := newMemStore()
	limiter := &stubLimiter{allow: true}
	src := blockcypher.New(mock.URL, "")

	// set up server for API
	s := New("", mem, src, limiter, nil, Info{Environment: "test", DbURI: "mongodb://x", RedisURI: "redis://x"})
	go s.Init("", "8099", "", "", "")
	time.Sleep(200 * time.Millisecond) // let the server come up

	base := "http://localhost:8099"

	// define tests
	cases := []struct {
		name, uri string
		pre       func()             // setup run before the request
		status    int                // http status code expected
		errExp    string             // error expected, substring match
		check     map[string]float64 // numeric body fields expected
	}{
		{"ping_1", "/ping", nil, http.StatusOK, "", nil},
		{"addr_bad", "/address/abc", nil, http.StatusBadRequest, "invalid Bitcoin address format", nil},
		{"addr_unknown", "/address/" + unknownAddr, nil, http.StatusNotFound, "not found in DB or external source", nil},
		{"addr_insert", "/address/" + knownAddr, nil, http.StatusOK, "", map[string]float64{"balance": 5000000000, "transaction_count": 2}},
		{"addr_cached", "/address/" + knownAddr, nil, http.StatusOK, "", map[string]float64{"balance": 5000000000, "transaction_count": 2}},
		{"addr_refresh", "/address/" + knownAddr,
			func() { // stale cache record must be refreshed in place
				mem.addrs[knownAddr] = store.Address{Addr: knownAddr, Balance: 1, TxCount: 1}
			},
			http.StatusOK, "", map[string]float64{"balance": 5000000000, "transaction_count": 2}},
		{"addr_limited_cached", "/address/" + knownAddr,
			func() { limiter.allow = false },
			http.StatusOK, "", map[string]float64{"balance": 5000000000, "transaction_count": 2}},
		{"addr_limited_uncached", "/address/" + uncachedAddr, nil, http.StatusTooManyRequests, "too many requests", nil},
		{"tx_bad", "/transaction/123456",
			func() { limiter.allow = true },
			http.StatusBadRequest, "accepting only 64 chars", nil},
		{"tx_insert", "/transaction/" + knownTx, nil, http.StatusOK, "", map[string]float64{"fees": 0}},
		{"tx_cached_limited", "/transaction/" + knownTx,
			func() { limiter.allow = false }, // cache hits never go upstream, the limiter must not matter
			http.StatusOK, "", map[string]float64{"fees": 0}},
		{"tx_limited", "/transaction/" + limitedTx, nil, http.StatusTooManyRequests, "too many requests", nil},
		{"tx_unknown", "/transaction/" + unknownTx,
			func() { limiter.allow = true },
			http.StatusNotFound, "not found in DB or external source", nil},
		{"tx_invalid", "/transaction/" + invalidTx, nil, http.StatusBadRequest, "Transaction not valid", nil},
	}

	// run tests
	for _, c := range cases {
		if c.pre != nil {
			c.pre()
		}

		res, err := http.Get(base + c.uri)
		if err != nil {
			t.Errorf("[%s] Error in request:%e", c.name, err)
			continue
		}

		var body map[string]interface{}
		errDec := json.NewDecoder(res.Body).Decode(&body)
		res.Body.Close()

		if res.StatusCode != c.status {
			t.Errorf("[%s] StatusCode:%d expected:%d body:%v", c.name, res.StatusCode, c.status, body)
			continue
		}

		if errDec != nil {
			t.Errorf("[%s] Error decoding response:%e", c.name, errDec)
			continue
		}

		if c.errExp != "" {
			e, _ := body["error"].(string)
			if !strings.Contains(e, c.errExp) {
				t.Errorf("[%s] Error response:%q expected to contain:%q", c.name, e, c.errExp)
			}
		}

		for k, v := range c.check {
			got, ok := body[k].(float64)
			if !ok || got != v {
				t.Errorf("[%s] Field %q:%v expected:%v", c.name, k, body[k], v)
			}
		}
	}

	// the refresh case must have persisted the update
	if a := mem.addrs[knownAddr]; a.Balance != 5000000000 || a.TxCount != 2 {
		t.Errorf("Cached address record was not refreshed:%+v", a)
	}

	// the insert case must have cached the transaction
	if _, ok := mem.txs[knownTx]; !ok {
		t.Errorf("Transaction %q was not cached", knownTx)
	}

	s.Stop()
}
