package elastic_search

import (
	"fmt"

	"github.com/nftdeck/marketplace-ledger/internal/config"
)

type Indices string

var (
	MarketplaceActionIndex Indices = "marketplaceaction"
	DevErrorIndex          Indices = "deverror"
)

// Sets the network and returns the full string
func (i *Indices) Get() string {
	return fmt.Sprintf("%s.%s.%s", config.Get().Network, config.Get().Index, string(*i))
}
