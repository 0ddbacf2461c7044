package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tarancss/simpliance/lib/chain"
	"github.com/tarancss/simpliance/lib/msg"
	"github.com/tarancss/simpliance/lib/store"
)

// btcAddressRE accepts legacy (P2PKH/P2SH) and Bech32 addresses, 26 to 42 characters.
var btcAddressRE = regexp.MustCompile(`^(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}$`)

// hashLen is the length of a hex-encoded transaction hash.
const hashLen = 64

// Errors returned to client requests.
var (
	ErrBadAddress = errors.New("invalid Bitcoin address format")
	ErrBadHash    = errors.New("hash length not valid - accepting only 64 chars as hash")
	ErrTooMany    = errors.New("too many requests")
)

// errorResponse defines the data structure returned to the client when a request fails.
type errorResponse struct {
	Error string `json:"error"`
}

// pingResponse defines the data structure returned by the health endpoint.
type pingResponse struct {
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
	MongodbURI  string `json:"mongodb_uri"`
	RedisURI    string `json:"redis_uri"`
}

// reply writes v as the JSON response body and counts the request for the endpoint.
func reply(rw http.ResponseWriter, endpoint string, status int, v interface{}) {
	reqTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()

	rw.Header().Set("Content-Type", "application/json;charset=utf8")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

// allowed consults the rate limiter for the request path. A limiter failure must not take lookups down, so it
// counts as allowed.
func (s *Service) allowed(r *http.Request) bool {
	if s.rl == nil {
		return true
	}

	ok, err := s.rl.Allow(r.Context(), r.URL.Path)
	if err != nil {
		log.Printf("Error consulting rate limiter:%e", err)

		return true
	}

	if !ok {
		rateLimited.Inc()
	}

	return ok
}

// pingHandler replies health and deployment information to the client.
func (s *Service) pingHandler(rw http.ResponseWriter, r *http.Request) {
	// log request
	log.Printf("httpreq from %v %s\n", r.RemoteAddr, r.RequestURI)

	reply(rw, "ping", http.StatusOK, pingResponse{
		Timestamp:   time.Now().Format(time.RFC3339Nano),
		Environment: s.info.Environment,
		MongodbURI:  s.info.DbURI,
		RedisURI:    s.info.RedisURI,
	})
}

// addressHandler replies the balance and confirmed-transaction count of the requested address. The cached record
// is refreshed from the upstream explorer unless the rate limiter says otherwise; when the upstream fetch is not
// possible the cached record is served instead (graceful degradation).
func (s *Service) addressHandler(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	address := mux.Vars(r)["address"]
	// log request
	log.Printf("httpreq from %v %s\n", r.RemoteAddr, r.RequestURI)

	// validate the address format before touching any backend
	if !btcAddressRE.MatchString(address) {
		reply(rw, "address", http.StatusBadRequest, errorResponse{Error: ErrBadAddress.Error()})

		return
	}

	// attempt to find a cached record
	cached, errCache := s.db.GetAddress(ctx, address)

	haveCache := errCache == nil
	if errCache != nil && !errors.Is(errCache, store.ErrAddrNotFound) {
		log.Printf("Error reading address %q from db:%e", address, errCache)
	}

	// the limiter guards the upstream call, not the cache
	if !s.allowed(r) {
		log.Printf("Rate limiter hit for %s", r.URL.Path)

		if haveCache {
			cacheHits.WithLabelValues(msg.ADDRESS).Inc()
			reply(rw, "address", http.StatusOK, cached)

			return
		}

		reply(rw, "address", http.StatusTooManyRequests, errorResponse{Error: ErrTooMany.Error()})

		return
	}

	// fetch the latest data from the upstream explorer
	info, err := s.src.AddressFull(ctx, address)
	if err != nil {
		upstreamErrors.Inc()
		log.Printf("Failed to fetch address %q from explorer - rolling back to db (%e)", address, err)

		// fallback to the cached record if available
		if haveCache {
			cacheHits.WithLabelValues(msg.ADDRESS).Inc()
			reply(rw, "address", http.StatusOK, cached)

			return
		}

		log.Printf("Record not found in db - address record %q not found", address)
		reply(rw, "address", http.StatusNotFound,
			errorResponse{Error: fmt.Sprintf("Address %q not found in DB or external source", address)})

		return
	}

	log.Printf("Found %d total transactions for address %q", len(info.Txs), address)

	txCount := info.ConfirmedTxs()

	if haveCache {
		// update the record in place when the confirmed-transaction count has grown
		if cached.TxCount < txCount {
			log.Printf("Updating the address record %q with %d confirmed transactions", address, txCount)

			if err = s.db.UpdateAddress(ctx, address, info.Balance, txCount); err != nil {
				log.Printf("Error updating address %q in db:%e", address, err)
			} else {
				cached.Balance = info.Balance
				cached.TxCount = txCount

				s.publishEvent(msg.StoreEvent{
					Kind: msg.ADDRESS, Key: address, Balance: cached.Balance, TxCount: cached.TxCount,
					TS: time.Now(),
				})
			}
		}

		log.Print("Returning cached address record")
		cacheHits.WithLabelValues(msg.ADDRESS).Inc()
		reply(rw, "address", http.StatusOK, cached)

		return
	}

	// not cached yet, insert a new record
	rec := store.Address{Timestamp: time.Now(), Addr: address, Balance: info.Balance, TxCount: txCount}

	log.Printf("Inserting new address record %q", address)
	cacheMisses.WithLabelValues(msg.ADDRESS).Inc()

	if err = s.db.AddAddress(ctx, rec); err != nil {
		log.Printf("Error inserting address %q in db:%e", address, err)
	} else {
		s.publishEvent(msg.StoreEvent{
			Kind: msg.ADDRESS, Key: address, New: true, Balance: rec.Balance, TxCount: rec.TxCount,
			TS: time.Now(),
		})
	}

	reply(rw, "address", http.StatusOK, rec)
}

// transactionHandler replies the details of the requested transaction. Cached records are immutable, so a cache
// hit never goes upstream.
func (s *Service) transactionHandler(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hash := mux.Vars(r)["hash"]
	// log request
	log.Printf("httpreq from %v %s\n", r.RemoteAddr, r.RequestURI)

	// validate hash length
	if len(hash) != hashLen {
		log.Printf("Hash %q is invalid - needs to be %d chars", hash, hashLen)
		reply(rw, "transaction", http.StatusBadRequest, errorResponse{Error: ErrBadHash.Error()})

		return
	}

	// try to find the transaction in the cache
	cached, err := s.db.GetTransaction(ctx, hash)
	if err == nil {
		log.Print("Cache hit - fetching transaction from db")
		cacheHits.WithLabelValues(msg.TX).Inc()
		reply(rw, "transaction", http.StatusOK, cached)

		return
	}

	if !errors.Is(err, store.ErrTxNotFound) {
		log.Printf("Error reading transaction %q from db:%e", hash, err)
	}

	if !s.allowed(r) {
		reply(rw, "transaction", http.StatusTooManyRequests, errorResponse{Error: ErrTooMany.Error()})

		return
	}

	log.Print("Cache miss - calling api to fetch data")
	cacheMisses.WithLabelValues(msg.TX).Inc()

	info, err := s.src.Transaction(ctx, hash)
	if err != nil {
		upstreamErrors.Inc()

		switch {
		case errors.Is(err, chain.ErrNotFound):
			reply(rw, "transaction", http.StatusNotFound,
				errorResponse{Error: fmt.Sprintf("Transaction %q not found in DB or external source", hash)})
		case errors.Is(err, chain.ErrUpstream):
			reply(rw, "transaction", http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			reply(rw, "transaction", http.StatusBadGateway, errorResponse{Error: err.Error()})
		}

		return
	}

	// create a new transaction record and insert it
	rec := store.Transaction{
		Timestamp: time.Now(),
		Hash:      info.Hash,
		Fees:      info.Fees,
		Confirmed: info.Confirmed,
		Inputs:    info.Inputs,
		Outputs:   info.Outputs,
	}

	if err = s.db.AddTransaction(ctx, rec); err != nil {
		log.Printf("Error inserting transaction %q in db:%e", hash, err)
	} else {
		s.publishEvent(msg.StoreEvent{Kind: msg.TX, Key: hash, New: true, TS: time.Now()})
	}

	reply(rw, "transaction", http.StatusOK, rec)
}
