package daemon

import (
	"net/http"
	"time"

	"github.com/nftdeck/marketplace-ledger/internal/api"
	"github.com/nftdeck/marketplace-ledger/internal/config"
	"github.com/nftdeck/marketplace-ledger/internal/elastic_search"
	"go.uber.org/zap"
)

type Daemon struct {
	elastic elastic_search.Index
	server  api.Server
}

func NewDaemon(elastic elastic_search.Index, server api.Server) *Daemon {
	return &Daemon{elastic, server}
}

// Execute installs the action index mappings, starts the background persist
// loop and serves the marketplace API. Blocks until the server exits.
func (d *Daemon) Execute() {
	d.elastic.InstallMappings()

	go d.persist()

	addr := ":" + config.Get().ApiPort
	zap.L().With(zap.String("addr", addr)).Info("Marketplace Api Started")

	if err := http.ListenAndServe(addr, d.server.Router()); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start marketplace api")
	}
}

// persist flushes buffered action documents to the index. Ledger events are
// low volume so a short fixed interval is enough.
func (d *Daemon) persist() {
	for range time.Tick(5 * time.Second) {
		d.elastic.Persist()
	}
}
