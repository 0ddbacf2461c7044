// Package simpliance implements the backend service for Bitcoin address and transaction compliance lookups.
/*
simpliance provides one microservice:

a lookup microservice (package service) that implements a RESTful API for clients to request the balance and
 confirmed-transaction count of a Bitcoin address or the details of a transaction by its hash.

Architecture

Lookups are served from a MongoDB read-through cache. On a cache miss (or when a cached address record may be
stale) the service fetches live data from an upstream block-explorer API (package lib/chain) and persists the
result. Upstream calls are guarded by a Redis fixed-window rate limiter (package lib/ratelimit) so the service
degrades to cached records instead of hammering the explorer when a client gets too chatty.

The storage layer (package lib/store) provides a database product agnostic interface with MongoDB and PostgreSQL
implementations, selected via the JSON config file provided at service startup.

Whenever a record is inserted or updated, the service can publish a store event to a message broker so other
services can follow cache activity in real time. The message broker is implemented as a product agnostic layer
(package lib/msg) and is optional: it is only enabled when a broker is configured.

Because the service depends on a document store and a cache being network-reachable, startup is deferred by a
readiness gate (package lib/gate) that polls each dependency's TCP port at a fixed interval until it accepts
connections, with a bounded maximum wait. The same gate backs cmd/waitready, a small utility that waits for its
configured dependencies and then replaces its own process image with the given command.

The microservice can also be monitored via a Prometheus API by setting the flag "-m" at startup.

Service

The lookup microservice (package service) can be started running cmd/server/main.go or using the Dockerfile. It
exposes an HTTP RESTful API with three endpoints: GET /ping for health information, GET /address/{address} for
address lookups and GET /transaction/{hash} for transaction lookups. All responses are JSON.
*/
package simpliance
