package indexer

import (
	"errors"

	"github.com/nftdeck/marketplace-ledger/internal/dev"
	"github.com/nftdeck/marketplace-ledger/internal/elastic_search"
	"github.com/nftdeck/marketplace-ledger/internal/entity"
	"go.uber.org/zap"
)

// MarketplaceIndexer turns emitted ledger events into indexed action
// documents for off-chain consumers. IndexAction is wired as an event
// listener callback.
type MarketplaceIndexer interface {
	IndexAction(msg interface{})
}

type marketplaceIndexer struct {
	elastic elastic_search.Index
}

func NewMarketplaceIndexer(elastic elastic_search.Index) MarketplaceIndexer {
	return marketplaceIndexer{elastic}
}

func (i marketplaceIndexer) IndexAction(msg interface{}) {
	action, ok := msg.(entity.MarketplaceAction)
	if !ok {
		zap.L().Warn("MarketplaceIndexer: Unexpected event payload")
		i.elastic.Save(elastic_search.DevErrorIndex.Get(), dev.NewError(
			"indexer", "IndexAction", errors.New("unexpected event payload"), nil,
		))
		return
	}

	if i.elastic.HasRequest(action) {
		zap.L().With(zap.String("slug", action.Slug())).Debug("MarketplaceIndexer: Action already pending")
		return
	}

	zap.L().With(
		zap.String("contract", action.Contract),
		zap.Uint64("tokenId", action.TokenId),
		zap.String("action", string(action.Action)),
	).Debug("MarketplaceIndexer: Index action")

	i.elastic.AddIndexRequest(elastic_search.MarketplaceActionIndex.Get(), action)
	i.elastic.BatchPersist()
}
