// Package main: lookup service.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tarancss/simpliance/lib/chain"
	"github.com/tarancss/simpliance/lib/chain/blockcypher"
	"github.com/tarancss/simpliance/lib/config"
	"github.com/tarancss/simpliance/lib/gate"
	"github.com/tarancss/simpliance/lib/msg"
	"github.com/tarancss/simpliance/lib/msg/amqp"
	"github.com/tarancss/simpliance/lib/ratelimit"
	"github.com/tarancss/simpliance/lib/store"
	"github.com/tarancss/simpliance/lib/store/db"
	"github.com/tarancss/simpliance/service"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json file")
	monitor := flag.Bool("m", false, "flag to monitor the server with Prometheus at http://localhost:9100")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration:%+v", conf)

	// wait for network dependencies before connecting to any of them
	if len(conf.WaitFor) > 0 {
		err = gate.Wait(context.Background(), conf.WaitFor, gate.Options{
			Interval: time.Duration(conf.WaitInterval) * time.Millisecond,
			MaxWait:  time.Duration(conf.WaitMax) * time.Second,
		})
		if err != nil {
			panic(err)
		}
	}

	// connect to database
	var dbConn store.DB

	if conf.DbConn != "" {
		if dbConn, err = db.New(conf.DbType, conf.DbConn); err != nil {
			panic(err)
		}

		log.Printf("Connecting to database:%+v\n", conf.DbConn)
	}

	// connect the rate limiter to Redis
	rl, err := ratelimit.New(conf.RedisConn, conf.RateLimit, time.Duration(conf.RateWindow)*time.Second)
	if err != nil {
		panic(err)
	}

	defer func() {
		errClose := rl.CloseRedis()
		log.Printf("Closing rate limiter: %e", errClose)
	}()

	// load the upstream explorer client
	var src chain.Source = blockcypher.New(conf.ChainURL, conf.ChainToken)

	log.Print("Explorer client loaded")

	// load Prometheus monitor
	if *monitor {
		go func() {
			log.Println("Serving metrics API")

			h := http.NewServeMux()

			h.Handle("/metrics", promhttp.Handler())
			http.ListenAndServe(":9100", h)
		}()
	}

	// load message broker
	var mb msg.MsgBroker

	switch conf.MbType {
	case "amqp":
		if mb, err = amqp.New(conf.MbConn); err != nil {
			time.Sleep(10 * time.Second) // wait 10s for AMQP to be ready and try to reconnect

			if mb, err = amqp.New(conf.MbConn); err != nil {
				panic(err)
			}
		}

		if err = mb.Setup(nil); err != nil {
			panic(err)
		}
	case "":
		log.Print("No message broker configured, store events disabled")
	default:
		log.Printf("Unknown message broker type: %s\n", conf.MbType)
	}

	// create lookup service
	s := service.New(conf.DbType, dbConn, src, rl, mb, service.Info{
		Environment: conf.Environment,
		DbURI:       conf.DbConn,
		RedisURI:    conf.RedisConn,
	})

	// capture CTRL+C or docker's SIGTERM for gracious exit
	finish := make(chan int)

	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Println("Program killed !")
		// do last actions and wait for all write operations to end
		s.Stop()
		close(finish)
	}()

	// follow store events published to the broker
	hostname, _ := os.Hostname()

	if err := s.ManageEvents(hostname); err != nil {
		log.Printf("Error setting up broker reader for events:%e", err)
	}

	// init RESTful API, wait for its return and log response
	log.Printf("Service: %s\n", s.Init(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey))

	<-finish
}
