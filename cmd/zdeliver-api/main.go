// README: Entry point; loads config, wires modules, starts HTTP server and the tracking janitor.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"zdeliver/internal/config"
	httptransport "zdeliver/internal/http"
	"zdeliver/internal/infra"
	"zdeliver/internal/maps"
	"zdeliver/internal/modules/dispatch"
	"zdeliver/internal/modules/notify"
	"zdeliver/internal/modules/party"
	"zdeliver/internal/modules/tracking"
	"zdeliver/internal/modules/vendor"
	"zdeliver/internal/modules/warehouse"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Firebase.ProjectID != "" {
		fcmClient, err := infra.NewMessagingClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			log.Fatalf("firebase init: %v", err)
		}
		notifier = notify.NewFCMNotifier(fcmClient)
	} else {
		log.Print("ZDELIVER_FIREBASE_PROJECT_ID not set; push notifications run in dry-run mode")
	}

	var estimator tracking.Estimator
	if cfg.Maps.APIKey != "" {
		etaSvc, err := maps.NewETAService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		estimator = etaSvc
	}

	warehouseStore := warehouse.NewStore(dbPool)
	warehouseResolver := warehouse.NewResolver(warehouseStore, cfg.Dispatch)

	vendorStore := vendor.NewStore(dbPool)
	vendorLive := vendor.NewLiveStore(redisClient)
	vendorDirectory := vendor.NewDirectory(vendorStore, vendorLive)

	partyStore := party.NewStore(dbPool)

	fanout := notify.NewFanout(notifier, notify.NewStore(dbPool),
		time.Duration(cfg.Dispatch.NotifyTimeoutSecs)*time.Second)

	registry := tracking.NewRegistry(estimator,
		time.Duration(cfg.Tracking.DormantTTLSecs)*time.Second)

	requestStore := dispatch.NewStore(dbPool)
	engine := dispatch.NewEngine(warehouseResolver, vendorDirectory, requestStore, fanout, registry, partyStore)

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Dispatch:   engine,
		Warehouses: warehouseResolver,
		Vendors:    vendorDirectory,
		Tracking:   registry,
		Realtime:   registry,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go registry.RunJanitor(ctx, time.Duration(cfg.Tracking.JanitorTickSecs)*time.Second)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
