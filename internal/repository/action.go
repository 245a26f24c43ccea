package repository

import (
	"encoding/json"
	"errors"

	"github.com/nftdeck/marketplace-ledger/internal/elastic_search"
	"github.com/nftdeck/marketplace-ledger/internal/entity"
	"github.com/olivere/elastic/v7"
)

var (
	ErrActionNotFound = errors.New("marketplace action not found")
)

type MarketplaceActionRepository interface {
	GetActions(contract string, tokenId uint64, size, from int) ([]entity.MarketplaceAction, int64, error)
	GetActionsByAccount(account string, size, from int) ([]entity.MarketplaceAction, int64, error)
	GetLatestSale(contract string, tokenId uint64) (*entity.MarketplaceAction, error)
}

type marketplaceActionRepository struct {
	elastic elastic_search.Index
}

func NewMarketplaceActionRepository(elastic elastic_search.Index) MarketplaceActionRepository {
	return marketplaceActionRepository{elastic}
}

func (r marketplaceActionRepository) GetActions(contract string, tokenId uint64, size, from int) ([]entity.MarketplaceAction, int64, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("contract.keyword", contract),
		elastic.NewTermQuery("tokenId", tokenId),
	)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.MarketplaceActionIndex.Get()).
		Query(query).
		Sort("time", false).
		Size(size).
		From(from))

	return r.findMany(result, err)
}

func (r marketplaceActionRepository) GetActionsByAccount(account string, size, from int) ([]entity.MarketplaceAction, int64, error) {
	query := elastic.NewBoolQuery().Should(
		elastic.NewTermQuery("seller.keyword", account),
		elastic.NewTermQuery("buyer.keyword", account),
	).MinimumNumberShouldMatch(1)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.MarketplaceActionIndex.Get()).
		Query(query).
		Sort("time", false).
		Size(size).
		From(from))

	return r.findMany(result, err)
}

func (r marketplaceActionRepository) GetLatestSale(contract string, tokenId uint64) (*entity.MarketplaceAction, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("contract.keyword", contract),
		elastic.NewTermQuery("tokenId", tokenId),
		elastic.NewTermQuery("action.keyword", string(entity.BoughtAction)),
	)

	result, err := search(r.elastic.GetClient().
		Search(elastic_search.MarketplaceActionIndex.Get()).
		Query(query).
		Sort("time", false).
		Size(1))

	return r.findOne(result, err)
}

func (r marketplaceActionRepository) findOne(results *elastic.SearchResult, err error) (*entity.MarketplaceAction, error) {
	if err != nil {
		return nil, err
	}

	if len(results.Hits.Hits) == 0 {
		return nil, ErrActionNotFound
	}

	var action entity.MarketplaceAction
	hit := results.Hits.Hits[0]
	err = json.Unmarshal(hit.Source, &action)

	return &action, err
}

func (r marketplaceActionRepository) findMany(results *elastic.SearchResult, err error) ([]entity.MarketplaceAction, int64, error) {
	actions := make([]entity.MarketplaceAction, 0)

	if err != nil {
		return actions, 0, err
	}

	for _, hit := range results.Hits.Hits {
		var action entity.MarketplaceAction
		if err := json.Unmarshal(hit.Source, &action); err == nil {
			actions = append(actions, action)
		}
	}

	return actions, results.TotalHits(), nil
}
