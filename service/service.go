// Package service implements the lookup microservice.
//
// This microservice implements a RESTful API for clients to look up Bitcoin addresses and transactions. Lookups
// are served from the store cache and refreshed from the upstream explorer API when needed.
package service

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/tarancss/simpliance/lib/chain"
	"github.com/tarancss/simpliance/lib/msg"
	"github.com/tarancss/simpliance/lib/ratelimit"
	"github.com/tarancss/simpliance/lib/store"
	"github.com/tarancss/simpliance/lib/store/db"
)

// Info contains deployment facts reported by the /ping endpoint.
type Info struct {
	Environment string
	DbURI       string
	RedisURI    string
}

// Service contains the data necessary to deliver the service
type Service struct {
	dbtype string
	db     store.DB          // db connection
	src    chain.Source      // upstream explorer client
	rl     ratelimit.Limiter // upstream call limiter
	mb     msg.MsgBroker     // optional, nil when no broker configured
	info   Info
	s      *http.Server  // http server
	ss     *http.Server  // https server
	sc     chan struct{} // http server channel used for graceful shutdowns
}

// New returns a pointer to a new lookup service
func New(dbtype string, dbConn store.DB, src chain.Source, rl ratelimit.Limiter, mb msg.MsgBroker, info Info) *Service {
	return &Service{
		dbtype: dbtype,
		db:     dbConn,
		src:    src,
		rl:     rl,
		mb:     mb,
		info:   info,
	}
}

// Stop shuts down the http servers implementing the RESTful API and closes gracefully the connections to message
// broker and database.
func (s *Service) Stop() {
	var err error
	// shutdown http server
	if s.s != nil {
		if err = s.s.Shutdown(context.Background()); err != nil {
			log.Printf("Error in http server shutdown:%e", err)
		}
	}
	if s.ss != nil {
		if err = s.ss.Shutdown(context.Background()); err != nil {
			log.Printf("Error in https server shutdown:%e", err)
		}
	}
	if s.sc != nil {
		close(s.sc) // close server channels to indicate shutdowns have finished
	}
	// close message broker
	if s.mb != nil {
		if err = s.mb.Close(); err != nil {
			log.Printf("Error closing message broker:%e", err)
		}
	}
	// close database
	if s.db != nil {
		err = db.Close(s.dbtype, s.db)
		log.Printf("Disconnecting %v database, err:%e\n", s.dbtype, err)
	}
}

// publishEvent sends a store event to the broker if one is configured. Send failures are logged, they never fail
// the client request.
func (s *Service) publishEvent(ev msg.StoreEvent) {
	if s.mb == nil {
		return
	}

	if err := s.mb.SendStoreEvent(ev); err != nil {
		log.Printf("[%s] Error publishing store event for %s:%e", ev.Kind, ev.Key, err)
	}
}

// ManageEvents starts go routines to consume the store events published to the message broker. Events are logged
// so an operator can follow cache activity across service instances.
func (s *Service) ManageEvents(consumer string) error {
	if s.mb == nil {
		return nil
	}

	var mut *sync.Mutex = new(sync.Mutex)
	mut.Lock()

	eveCh, errCh, err := s.mb.GetStoreEvents(consumer, mut)
	if err != nil {
		return err
	}

	// launch event channel reader
	go func() {
		log.Printf("[%s] Start listening to store event channel", consumer)
		for eve := range eveCh {
			log.Printf("[%s] Received store event %+v", consumer, eve)
			mut.Unlock()
		}
		log.Printf("[%s] Stop listening to store event channel", consumer)
	}()

	// launch error channel reader
	go func() {
		log.Printf("[%s] Start listening to err channel", consumer)
		for e := range errCh {
			log.Printf("[%s] Received error %+v", consumer, e)
		}
		log.Printf("[%s] Stop listening to err channel", consumer)
	}()

	return nil
}
