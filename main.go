package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gbl08ma/keybox"
	"github.com/underlx/delaywatch/compute"
	"github.com/underlx/delaywatch/dataobjects"
	"github.com/underlx/delaywatch/scraper"
)

var (
	secrets    *keybox.Keybox
	store      *dataobjects.Store
	mainLog    = log.New(os.Stdout, "", log.Ldate|log.Ltime)
	scraperLog = log.New(os.Stdout, "scraper", log.Ldate|log.Ltime)
	webLog     = log.New(os.Stdout, "web", log.Ldate|log.Ltime)

	source       scraper.Source
	statsHandler *compute.StatsHandler
	ingester     *compute.Ingester
	viewBuilder  *compute.ViewBuilder

	// GitCommit is provided by govvv at compile-time
	GitCommit = "???"
	// BuildDate is provided by govvv at compile-time
	BuildDate = "???"
)

func main() {
	oneShot := len(os.Args) > 1 && os.Args[1] == "update"
	if len(os.Args) > 1 && !oneShot {
		fmt.Fprintf(os.Stderr, "usage: %s [update]\n", os.Args[0])
		os.Exit(2)
	}

	var err error
	mainLog.Println("Server starting, opening keybox...")
	secrets, err = keybox.Open(SecretsPath)
	if err != nil {
		mainLog.Fatalln(err)
	}
	mainLog.Println("Keybox opened")

	mainLog.Println("Opening database...")
	store, err = openStore()
	if err != nil {
		mainLog.Fatalln(err)
	}
	defer store.Close()

	err = store.EnsureSchema()
	if err != nil {
		mainLog.Fatalln(err)
	}
	mainLog.Println("Database opened, backend", store.Backend())

	source, err = SetUpSource()
	if err != nil {
		mainLog.Fatalln(err)
	}

	normalizer, err := SetUpNormalizer()
	if err != nil {
		mainLog.Fatalln(err)
	}

	statsHandler = compute.NewStatsHandler(100)
	ingester = &compute.Ingester{
		Source:         source,
		Store:          store,
		Normalizer:     normalizer,
		Stats:          statsHandler,
		Log:            mainLog,
		ResultCallback: BatchTelemetry,
	}

	if oneShot {
		result := ingester.RunBatch()
		if !result.OK {
			fmt.Fprintln(os.Stderr, "ERROR:", result.Reason)
			store.Close()
			os.Exit(1)
		}
		fmt.Println("OK:", result.Reason)
		return
	}

	viewBuilder = compute.NewViewBuilder(store, mainLog)

	go StatsSender()
	go WebServer()
	go APIserver()

	period := updatePeriod()
	if period == 0 {
		mainLog.Println("Periodic updates disabled, waiting for update requests")
		select {}
	}
	for {
		ingester.RunBatch()
		time.Sleep(period)
	}
}

func openStore() (*dataobjects.Store, error) {
	cfg := dataobjects.StoreConfig{
		MaxOpenConns: MaxDBconnectionPoolSize,
	}
	cfg.DatabaseURL, _ = secrets.Get("databaseURL")
	cfg.SQLitePath, _ = secrets.Get("sqlitePath")
	return dataobjects.Open(cfg)
}

func updatePeriod() time.Duration {
	value, present := secrets.Get("updatePeriod")
	if !present {
		return 0
	}
	period, err := time.ParseDuration(value)
	if err != nil || period < 0 {
		mainLog.Println("Invalid updatePeriod in keybox, periodic updates disabled")
		return 0
	}
	return period
}

func secretOrDefault(key, def string) string {
	value, present := secrets.Get(key)
	if !present || value == "" {
		return def
	}
	return value
}
