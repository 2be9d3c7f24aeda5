package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"goa.design/clue/health"
	"goa.design/clue/log"
	"golang.org/x/time/rate"

	"github.com/beamlab/dms/api"
	"github.com/beamlab/dms/docs"
	"github.com/beamlab/dms/store"
	memorystore "github.com/beamlab/dms/store/memory"
	mongostore "github.com/beamlab/dms/store/mongo"
)

func main() {
	var (
		configF   = flag.String("config", "", "Path to YAML configuration file")
		httpAddrF = flag.String("http-addr", "", "HTTP listen address (overrides config)")
		mongoURIF = flag.String("mongo-uri", "", "MongoDB connection string (overrides config)")
		dbPrefixF = flag.String("db-prefix", "", "Prefix for MongoDB database names (overrides config)")
		memF      = flag.Bool("mem", false, "Use the in-process store instead of MongoDB")
		dbgF      = flag.Bool("debug", false, "Log request and response bodies, mount pprof")
	)
	flag.Parse()

	cfg, err := loadConfig(*configF)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http-addr":
			cfg.HTTPAddr = *httpAddrF
		case "mongo-uri":
			cfg.MongoURI = *mongoURIF
		case "db-prefix":
			cfg.DBPrefix = *dbPrefixF
		case "mem":
			cfg.Memory = *memF
		case "debug":
			cfg.Debug = *dbgF
		}
	})

	// Setup logger.
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}
	log.Print(ctx, log.KV{K: "http-addr", V: cfg.HTTPAddr})

	// Initialize the store.
	var (
		st  store.Store
		dep health.Pinger
	)
	if cfg.Memory {
		ms := memorystore.New()
		st, dep = ms, ms
		log.Printf(ctx, "using in-process store")
	} else {
		client, err := mongodriver.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf(ctx, err, "connecting to MongoDB at %q", cfg.MongoURI)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Errorf(ctx, err, "disconnecting MongoDB client")
			}
		}()
		{
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
				log.Fatalf(ctx, err, "pinging MongoDB at %q", cfg.MongoURI)
			}
		}
		ms, err := mongostore.New(mongostore.Options{Client: client, Prefix: cfg.DBPrefix})
		if err != nil {
			log.Fatalf(ctx, err, "building MongoDB store")
		}
		st, dep = ms, ms
		log.Printf(ctx, "using MongoDB store at %q", cfg.MongoURI)
	}

	// Build the HTTP handler.
	opts := []api.Option{}
	if cfg.Debug {
		opts = append(opts, api.WithDebug())
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}
	handler := api.New(docs.New(st), dep, opts...)
	handler = log.HTTP(ctx)(handler)

	// Create channel used by both the signal handler and server goroutine
	// to notify the main goroutine when to stop the server.
	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: handler, ReadHeaderTimeout: time.Second * 60}
	go func() {
		log.Printf(ctx, "HTTP server listening on %q", cfg.HTTPAddr)
		errc <- srv.ListenAndServe()
	}()

	// Wait for signal or server failure.
	log.Printf(ctx, "exiting (%v)", <-errc)

	// Shutdown gracefully with a 30s timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf(ctx, "failed to shutdown: %v", err)
	}
	log.Printf(ctx, "exited")
}
