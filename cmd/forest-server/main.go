// Command forest-server answers read queries against a persistent forest of
// chunked trees and sequences all chunk inserts through a single writer.
package main

import (
	"flag"
	"log"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/seqtree/forest/forest"
	"github.com/seqtree/forest/store"
)

var (
	Version   = "dev"
	GoVersion = runtime.Version()

	configFile = flag.String("config", "", "Location of config file.")
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.LUTC)
	flag.Parse()

	// Load config from disk.
	if *configFile == "" {
		log.Fatalf("No config file provided, see --help.")
	}
	config, err := ReadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	// Start the metrics server.
	go metrics(config.MetricsAddr)

	// Load the persisted forest and start the inserter thread.
	chunks, err := store.NewLDBStore(config.DatabaseFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	f, err := store.Load(chunks)
	if err != nil {
		log.Fatalf("Failed to load forest: %v", err)
	}
	log.Printf("Loaded forest with %v chunks", f.Len())

	snapshot := &atomic.Pointer[forest.Forest]{}
	snapshot.Store(f.Clone())
	ch := make(chan InsertRequest)

	go inserter(f, chunks, snapshot, ch)

	// Setup handler for the API server.
	h := &Handler{config: config.APIConfig, snapshot: snapshot, ch: ch}
	r := mux.NewRouter()
	r.HandleFunc("/", h.Home)
	r.HandleFunc("/v1/node/{id:[0-9a-f]+}", HandleAPI(h.Node))
	r.HandleFunc("/v1/node/{id:[0-9a-f]+}/parent", HandleAPI(h.Parent))
	r.HandleFunc("/v1/node/{id:[0-9a-f]+}/walk", HandleAPI(h.Walk))
	r.HandleFunc("/v1/chunk/{id:[0-9a-f]+}", HandleAPI(h.Chunk))

	// Setup the API server.
	srv := &http.Server{
		Addr:    config.ServerAddr,
		Handler: r,

		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	log.Printf("Starting API server at: %v", config.ServerAddr)
	log.Fatal(srv.ListenAndServe())
}
