package dic

import (
	"time"

	"github.com/nftdeck/marketplace-ledger/internal/api"
	"github.com/nftdeck/marketplace-ledger/internal/config"
	"github.com/nftdeck/marketplace-ledger/internal/daemon"
	"github.com/nftdeck/marketplace-ledger/internal/elastic_search"
	"github.com/nftdeck/marketplace-ledger/internal/indexer"
	"github.com/nftdeck/marketplace-ledger/internal/marketplace"
	"github.com/nftdeck/marketplace-ledger/internal/messenger"
	"github.com/nftdeck/marketplace-ledger/internal/registry"
	"github.com/nftdeck/marketplace-ledger/internal/repository"
	"github.com/nftdeck/marketplace-ledger/internal/store"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"
)

type Container struct {
	ctn di.Container
}

func NewContainer() (*Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}

	if err := builder.Add(definitions...); err != nil {
		return nil, err
	}

	return &Container{ctn: builder.Build()}, nil
}

func (c *Container) GetElastic() elastic_search.Index {
	return c.ctn.Get("elastic").(elastic_search.Index)
}

func (c *Container) GetStore() store.Store {
	return c.ctn.Get("store").(store.Store)
}

func (c *Container) GetRegistry() registry.Service {
	return c.ctn.Get("registry").(registry.Service)
}

func (c *Container) GetLedger() *marketplace.Ledger {
	return c.ctn.Get("ledger").(*marketplace.Ledger)
}

func (c *Container) GetActionRepo() repository.MarketplaceActionRepository {
	return c.ctn.Get("action.repo").(repository.MarketplaceActionRepository)
}

func (c *Container) GetMarketplaceIndexer() indexer.MarketplaceIndexer {
	return c.ctn.Get("marketplace.indexer").(indexer.MarketplaceIndexer)
}

func (c *Container) GetMessenger() messenger.MessageService {
	return c.ctn.Get("messenger").(messenger.MessageService)
}

func (c *Container) GetPublisher() messenger.Publisher {
	return c.ctn.Get("publisher").(messenger.Publisher)
}

func (c *Container) GetSubscriber() messenger.Subscriber {
	return c.ctn.Get("subscriber").(messenger.Subscriber)
}

func (c *Container) GetApiServer() api.Server {
	return c.ctn.Get("api.server").(api.Server)
}

func (c *Container) GetDaemon() *daemon.Daemon {
	return c.ctn.Get("daemon").(*daemon.Daemon)
}

var definitions = []di.Def{
	{
		Name: "elastic",
		Build: func(ctn di.Container) (interface{}, error) {
			elastic, err := elastic_search.New()
			if err != nil {
				zap.L().With(zap.Error(err)).Fatal("Failed to start ES")
			}

			return elastic, nil
		},
	},
	{
		Name: "store",
		Build: func(ctn di.Container) (interface{}, error) {
			return store.NewMemoryStore(), nil
		},
	},
	{
		Name: "registry",
		Build: func(ctn di.Container) (interface{}, error) {
			client, err := registry.NewClient(
				config.Get().Registry.Url,
				config.Get().Registry.Timeout,
				config.Get().Registry.Debug,
			)
			if err != nil {
				return nil, err
			}

			return registry.NewService(registry.NewProvider(client)), nil
		},
	},
	{
		Name: "ledger",
		Build: func(ctn di.Container) (interface{}, error) {
			registrySvc := ctn.Get("registry").(registry.Service)
			return marketplace.NewLedger(
				ctn.Get("store").(store.Store),
				registrySvc,
				registrySvc,
				config.Get().Marketplace.Operator,
			), nil
		},
	},
	{
		Name: "action.repo",
		Build: func(ctn di.Container) (interface{}, error) {
			return repository.NewMarketplaceActionRepository(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "marketplace.indexer",
		Build: func(ctn di.Container) (interface{}, error) {
			return indexer.NewMarketplaceIndexer(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "messenger",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewMessenger(config.Get().Amqp.Uri), nil
		},
	},
	{
		Name: "publisher",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewPublisher(ctn.Get("messenger").(messenger.MessageService)), nil
		},
	},
	{
		Name: "subscriber",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewSubscriber(ctn.Get("messenger").(messenger.MessageService)), nil
		},
	},
	{
		Name: "api.server",
		Build: func(ctn di.Container) (interface{}, error) {
			return api.NewServer(
				ctn.Get("ledger").(*marketplace.Ledger),
				ctn.Get("action.repo").(repository.MarketplaceActionRepository),
				time.Duration(config.Get().ApiCacheTtl)*time.Second,
			), nil
		},
	},
	{
		Name: "daemon",
		Build: func(ctn di.Container) (interface{}, error) {
			return daemon.NewDaemon(
				ctn.Get("elastic").(elastic_search.Index),
				ctn.Get("api.server").(api.Server),
			), nil
		},
	},
}
