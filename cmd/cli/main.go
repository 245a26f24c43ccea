package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nftdeck/marketplace-ledger/internal/config"
	"github.com/nftdeck/marketplace-ledger/internal/dic"
	"github.com/nftdeck/marketplace-ledger/internal/entity"
	"github.com/nftdeck/marketplace-ledger/internal/marketplace"
	"github.com/nftdeck/marketplace-ledger/internal/messenger"
	"github.com/nftdeck/marketplace-ledger/internal/repository"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	container  *dic.Container
	ledger     *marketplace.Ledger
	actionRepo repository.MarketplaceActionRepository
)

func main() {
	config.Init("cli")

	var err error
	container, err = dic.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	ledger = container.GetLedger()
	actionRepo = container.GetActionRepo()

	app := &cli.App{
		Name:  "marketplace",
		Usage: "Administer the marketplace ledger",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List a token for sale",
				Action: listItem,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.Uint64Flag{Name: "token", Required: true},
					&cli.Uint64Flag{Name: "price", Required: true},
					&cli.StringFlag{Name: "caller", Required: true},
				},
			},
			{
				Name:   "cancel",
				Usage:  "Cancel an active listing",
				Action: cancelListing,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.Uint64Flag{Name: "token", Required: true},
					&cli.StringFlag{Name: "caller", Required: true},
				},
			},
			{
				Name:   "update",
				Usage:  "Update the price of an active listing",
				Action: updateListing,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.Uint64Flag{Name: "token", Required: true},
					&cli.Uint64Flag{Name: "price", Required: true},
					&cli.StringFlag{Name: "caller", Required: true},
				},
			},
			{
				Name:   "buy",
				Usage:  "Buy a listed token",
				Action: buyItem,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.Uint64Flag{Name: "token", Required: true},
					&cli.Uint64Flag{Name: "payment", Required: true},
					&cli.StringFlag{Name: "buyer", Required: true},
				},
			},
			{
				Name:   "withdraw",
				Usage:  "Withdraw accumulated proceeds",
				Action: withdraw,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "amount", Required: true},
					&cli.StringFlag{Name: "caller", Required: true},
				},
			},
			{
				Name:   "listing",
				Usage:  "Show the listing for a token",
				Action: getListing,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.Uint64Flag{Name: "token", Required: true},
				},
			},
			{
				Name:   "proceeds",
				Usage:  "Show the withdrawable balance for an account",
				Action: getProceeds,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "account", Required: true},
				},
			},
			{
				Name:   "actions",
				Usage:  "Show the indexed action history for a token",
				Action: getActions,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.Uint64Flag{Name: "token", Required: true},
					&cli.IntFlag{Name: "size", Value: 10},
				},
			},
			{
				Name:   "account-actions",
				Usage:  "Show the indexed action history for an account",
				Action: getAccountActions,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "account", Required: true},
					&cli.IntFlag{Name: "size", Value: 10},
				},
			},
			{
				Name:   "latest-sale",
				Usage:  "Show the most recent sale of a token",
				Action: getLatestSale,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "contract", Required: true},
					&cli.Uint64Flag{Name: "token", Required: true},
				},
			},
			{
				Name:   "tail",
				Usage:  "Stream marketplace actions from the message exchange",
				Action: tailActions,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("CLI Failure")
	}
}

func listItem(c *cli.Context) error {
	return ledger.ListItem(context.Background(), c.String("contract"), c.Uint64("token"), c.Uint64("price"), c.String("caller"))
}

func cancelListing(c *cli.Context) error {
	return ledger.CancelListing(context.Background(), c.String("contract"), c.Uint64("token"), c.String("caller"))
}

func updateListing(c *cli.Context) error {
	return ledger.UpdateListing(context.Background(), c.String("contract"), c.Uint64("token"), c.Uint64("price"), c.String("caller"))
}

func buyItem(c *cli.Context) error {
	return ledger.BuyItem(context.Background(), c.String("contract"), c.Uint64("token"), c.Uint64("payment"), c.String("buyer"))
}

func withdraw(c *cli.Context) error {
	return ledger.Withdraw(context.Background(), c.Uint64("amount"), c.String("caller"))
}

func getListing(c *cli.Context) error {
	listing := ledger.GetListing(c.String("contract"), c.Uint64("token"))
	fmt.Printf("contract: %s\ntokenId: %d\nprice: %d\nseller: %s\n", listing.Contract, listing.TokenId, listing.Price, listing.Seller)
	return nil
}

func getProceeds(c *cli.Context) error {
	fmt.Printf("%d\n", ledger.GetProceeds(c.String("account")))
	return nil
}

func getActions(c *cli.Context) error {
	actions, total, err := actionRepo.GetActions(c.String("contract"), c.Uint64("token"), c.Int("size"), 0)
	if err != nil {
		return err
	}

	for _, action := range actions {
		printAction(action)
	}
	fmt.Printf("total: %d\n", total)

	return nil
}

func getAccountActions(c *cli.Context) error {
	actions, total, err := actionRepo.GetActionsByAccount(c.String("account"), c.Int("size"), 0)
	if err != nil {
		return err
	}

	for _, action := range actions {
		printAction(action)
	}
	fmt.Printf("total: %d\n", total)

	return nil
}

func getLatestSale(c *cli.Context) error {
	sale, err := actionRepo.GetLatestSale(c.String("contract"), c.Uint64("token"))
	if err != nil {
		return err
	}

	printAction(*sale)

	return nil
}

func tailActions(c *cli.Context) error {
	if size, err := container.GetMessenger().GetQueueSize(messenger.MarketplaceEvents); err == nil {
		fmt.Printf("queued: %d\n", *size)
	}

	return container.GetSubscriber().TailActions(printAction)
}

func printAction(action entity.MarketplaceAction) {
	fmt.Printf("%s %s token %d price %d seller %s buyer %s\n",
		action.Time.Format("2006-01-02 15:04:05"), action.Action, action.TokenId, action.Price, action.Seller, action.Buyer)
}
