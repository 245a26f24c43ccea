package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/nftdeck/marketplace-ledger/internal/config"
	"github.com/nftdeck/marketplace-ledger/internal/dic"
	"github.com/nftdeck/marketplace-ledger/internal/event"
	"go.uber.org/zap"
)

var container *dic.Container

func main() {
	config.Init("marketplaced")

	var err error
	container, err = dic.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	go health()

	zap.L().With(zap.String("port", config.Get().HealthPort)).Info("Marketplace Started")

	event.AddEventListener(event.ItemListedEvent, container.GetMarketplaceIndexer().IndexAction)
	event.AddEventListener(event.ItemCanceledEvent, container.GetMarketplaceIndexer().IndexAction)
	event.AddEventListener(event.ItemBoughtEvent, container.GetMarketplaceIndexer().IndexAction)
	event.AddEventListener(event.ItemWithdrawnEvent, container.GetMarketplaceIndexer().IndexAction)

	if config.Get().Amqp.Enabled {
		event.AddEventListener(event.ItemListedEvent, container.GetPublisher().PublishAction)
		event.AddEventListener(event.ItemCanceledEvent, container.GetPublisher().PublishAction)
		event.AddEventListener(event.ItemBoughtEvent, container.GetPublisher().PublishAction)
		event.AddEventListener(event.ItemWithdrawnEvent, container.GetPublisher().PublishAction)
	}

	container.GetDaemon().Execute()
}

func health() {
	if err := http.ListenAndServe(":"+config.Get().HealthPort, router()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start health endpoint")
	}
}

func router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")

	return r
}
