package marketplace

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nftdeck/marketplace-ledger/internal/store"
)

const (
	nftContract = "0x6b7c4e3f2a9d8e1b5a0c3d2e1f4a5b6c7d8e9f0a"
	operator    = "0x8d329a47bf148c7d63d52b75fb2028adc10a3d2f"
	deployer    = "0xaaa0000000000000000000000000000000000001"
	user        = "0xbbb0000000000000000000000000000000000002"

	tokenId = uint64(0)
	price   = uint64(100_000_000_000_000_000) // 0.1 in the smallest unit
)

type fakeRegistry struct {
	owners      map[string]string
	approvals   map[string]string
	transferErr error
	onTransfer  func(ctx context.Context)
}

func tokenKey(contract string, tokenId uint64) string {
	return fmt.Sprintf("%s-%d", contract, tokenId)
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		owners:    map[string]string{tokenKey(nftContract, tokenId): deployer},
		approvals: map[string]string{tokenKey(nftContract, tokenId): operator},
	}
}

func (r *fakeRegistry) OwnerOf(_ context.Context, contract string, tokenId uint64) (string, error) {
	return r.owners[tokenKey(contract, tokenId)], nil
}

func (r *fakeRegistry) GetApproved(_ context.Context, contract string, tokenId uint64) (string, error) {
	return r.approvals[tokenKey(contract, tokenId)], nil
}

func (r *fakeRegistry) TransferFrom(ctx context.Context, contract string, tokenId uint64, from, to string) error {
	if r.onTransfer != nil {
		r.onTransfer(ctx)
	}
	if r.transferErr != nil {
		return r.transferErr
	}
	if r.owners[tokenKey(contract, tokenId)] != from {
		return errors.New("transfer from wrong owner")
	}

	r.owners[tokenKey(contract, tokenId)] = to
	delete(r.approvals, tokenKey(contract, tokenId))
	return nil
}

type payout struct {
	to     string
	amount uint64
}

type fakeFunds struct {
	payouts     []payout
	transferErr error
}

func (f *fakeFunds) Transfer(_ context.Context, to string, amount uint64) error {
	if f.transferErr != nil {
		return f.transferErr
	}
	f.payouts = append(f.payouts, payout{to, amount})
	return nil
}

func newLedger() (*Ledger, *fakeRegistry, *fakeFunds) {
	registry := newFakeRegistry()
	funds := &fakeFunds{}
	return NewLedger(store.NewMemoryStore(), registry, funds, operator), registry, funds
}

func TestListItem(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects zero price", func(t *testing.T) {
		ledger, _, _ := newLedger()

		if err := ledger.ListItem(ctx, nftContract, tokenId, 0, deployer); !errors.Is(err, ErrPriceInvalid) {
			t.Fatalf("ListItem() error = %v, want ErrPriceInvalid", err)
		}
		if listing := ledger.GetListing(nftContract, tokenId); listing.Price != 0 {
			t.Errorf("listing created despite invalid price: %+v", listing)
		}
	})

	t.Run("rejects caller that is not the owner", func(t *testing.T) {
		ledger, _, _ := newLedger()

		if err := ledger.ListItem(ctx, nftContract, tokenId, price, user); !errors.Is(err, ErrIsNotOwner) {
			t.Fatalf("ListItem() error = %v, want ErrIsNotOwner", err)
		}
	})

	t.Run("rejects token without approval", func(t *testing.T) {
		ledger, registry, _ := newLedger()
		delete(registry.approvals, tokenKey(nftContract, tokenId))

		if err := ledger.ListItem(ctx, nftContract, tokenId, price, deployer); !errors.Is(err, ErrNotApproved) {
			t.Fatalf("ListItem() error = %v, want ErrNotApproved", err)
		}
	})

	t.Run("stores price and seller", func(t *testing.T) {
		ledger, _, _ := newLedger()

		if err := ledger.ListItem(ctx, nftContract, tokenId, price, deployer); err != nil {
			t.Fatalf("ListItem() error = %v", err)
		}

		listing := ledger.GetListing(nftContract, tokenId)
		if listing.Price != price {
			t.Errorf("listing.Price = %d, want %d", listing.Price, price)
		}
		if listing.Seller != deployer {
			t.Errorf("listing.Seller = %s, want %s", listing.Seller, deployer)
		}
	})

	t.Run("relisting overwrites the existing listing", func(t *testing.T) {
		ledger, _, _ := newLedger()

		if err := ledger.ListItem(ctx, nftContract, tokenId, price, deployer); err != nil {
			t.Fatalf("ListItem() error = %v", err)
		}
		if err := ledger.ListItem(ctx, nftContract, tokenId, price*2, deployer); err != nil {
			t.Fatalf("ListItem() relist error = %v", err)
		}

		if listing := ledger.GetListing(nftContract, tokenId); listing.Price != price*2 {
			t.Errorf("listing.Price = %d, want %d", listing.Price, price*2)
		}
	})
}

func TestCancelListing(t *testing.T) {
	ctx := context.Background()

	t.Run("fails when not listed, even for a non-owner", func(t *testing.T) {
		ledger, _, _ := newLedger()

		// Existence is checked before ownership.
		if err := ledger.CancelListing(ctx, nftContract, tokenId, user); !errors.Is(err, ErrIsNotListed) {
			t.Fatalf("CancelListing() error = %v, want ErrIsNotListed", err)
		}
	})

	t.Run("fails when caller is not the current owner", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustList(t, ledger, deployer)

		if err := ledger.CancelListing(ctx, nftContract, tokenId, user); !errors.Is(err, ErrIsNotOwner) {
			t.Fatalf("CancelListing() error = %v, want ErrIsNotOwner", err)
		}
	})

	t.Run("removes the listing", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustList(t, ledger, deployer)

		if err := ledger.CancelListing(ctx, nftContract, tokenId, deployer); err != nil {
			t.Fatalf("CancelListing() error = %v", err)
		}
		if listing := ledger.GetListing(nftContract, tokenId); listing.Price != 0 {
			t.Errorf("listing still present after cancel: %+v", listing)
		}
	})

	t.Run("current owner may cancel after an out-of-band transfer", func(t *testing.T) {
		ledger, registry, _ := newLedger()
		mustList(t, ledger, deployer)

		// Token moved outside the marketplace; the stored seller is stale.
		registry.owners[tokenKey(nftContract, tokenId)] = user

		if err := ledger.CancelListing(ctx, nftContract, tokenId, deployer); !errors.Is(err, ErrIsNotOwner) {
			t.Fatalf("CancelListing() by stale seller error = %v, want ErrIsNotOwner", err)
		}
		if err := ledger.CancelListing(ctx, nftContract, tokenId, user); err != nil {
			t.Fatalf("CancelListing() by new owner error = %v", err)
		}
	})
}

func TestUpdateListing(t *testing.T) {
	ctx := context.Background()

	t.Run("fails when not listed", func(t *testing.T) {
		ledger, _, _ := newLedger()

		if err := ledger.UpdateListing(ctx, nftContract, tokenId, price, deployer); !errors.Is(err, ErrIsNotListed) {
			t.Fatalf("UpdateListing() error = %v, want ErrIsNotListed", err)
		}
	})

	t.Run("fails when caller is not the current owner", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustList(t, ledger, deployer)

		if err := ledger.UpdateListing(ctx, nftContract, tokenId, price*2, user); !errors.Is(err, ErrIsNotOwner) {
			t.Fatalf("UpdateListing() error = %v, want ErrIsNotOwner", err)
		}
	})

	t.Run("rejects zero price", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustList(t, ledger, deployer)

		if err := ledger.UpdateListing(ctx, nftContract, tokenId, 0, deployer); !errors.Is(err, ErrPriceInvalid) {
			t.Fatalf("UpdateListing() error = %v, want ErrPriceInvalid", err)
		}
		if listing := ledger.GetListing(nftContract, tokenId); listing.Price != price {
			t.Errorf("listing.Price = %d, want unchanged %d", listing.Price, price)
		}
	})

	t.Run("overwrites price and keeps seller", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustList(t, ledger, deployer)

		if err := ledger.UpdateListing(ctx, nftContract, tokenId, price*3, deployer); err != nil {
			t.Fatalf("UpdateListing() error = %v", err)
		}

		listing := ledger.GetListing(nftContract, tokenId)
		if listing.Price != price*3 {
			t.Errorf("listing.Price = %d, want %d", listing.Price, price*3)
		}
		if listing.Seller != deployer {
			t.Errorf("listing.Seller = %s, want %s", listing.Seller, deployer)
		}
	})
}

func TestBuyItem(t *testing.T) {
	ctx := context.Background()

	t.Run("fails when not listed", func(t *testing.T) {
		ledger, _, _ := newLedger()

		if err := ledger.BuyItem(ctx, nftContract, tokenId, price, user); !errors.Is(err, ErrIsNotListed) {
			t.Fatalf("BuyItem() error = %v, want ErrIsNotListed", err)
		}
	})

	t.Run("fails when payment is below the price", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustList(t, ledger, deployer)

		if err := ledger.BuyItem(ctx, nftContract, tokenId, price-1, user); !errors.Is(err, ErrPaymentNotEnough) {
			t.Fatalf("BuyItem() error = %v, want ErrPaymentNotEnough", err)
		}
		if got := ledger.GetProceeds(deployer); got != 0 {
			t.Errorf("GetProceeds(deployer) = %d, want 0", got)
		}
	})

	t.Run("removes listing, credits seller and transfers the token", func(t *testing.T) {
		ledger, registry, _ := newLedger()
		mustList(t, ledger, deployer)

		if err := ledger.BuyItem(ctx, nftContract, tokenId, price, user); err != nil {
			t.Fatalf("BuyItem() error = %v", err)
		}

		if listing := ledger.GetListing(nftContract, tokenId); listing.Price != 0 || listing.Seller != "" {
			t.Errorf("listing not removed after sale: %+v", listing)
		}
		if got := ledger.GetProceeds(deployer); got != price {
			t.Errorf("GetProceeds(deployer) = %d, want %d", got, price)
		}
		if owner := registry.owners[tokenKey(nftContract, tokenId)]; owner != user {
			t.Errorf("token owner = %s, want %s", owner, user)
		}
	})

	t.Run("credits overpayment in full", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustList(t, ledger, deployer)

		overpaid := price + price/2
		if err := ledger.BuyItem(ctx, nftContract, tokenId, overpaid, user); err != nil {
			t.Fatalf("BuyItem() error = %v", err)
		}
		if got := ledger.GetProceeds(deployer); got != overpaid {
			t.Errorf("GetProceeds(deployer) = %d, want %d", got, overpaid)
		}
	})

	t.Run("rolls back when the token transfer fails", func(t *testing.T) {
		ledger, registry, _ := newLedger()
		mustList(t, ledger, deployer)
		registry.transferErr = errors.New("registry unavailable")

		if err := ledger.BuyItem(ctx, nftContract, tokenId, price, user); err == nil {
			t.Fatal("BuyItem() error = nil, want transfer failure")
		}

		if listing := ledger.GetListing(nftContract, tokenId); listing.Price != price || listing.Seller != deployer {
			t.Errorf("listing not restored after failed sale: %+v", listing)
		}
		if got := ledger.GetProceeds(deployer); got != 0 {
			t.Errorf("GetProceeds(deployer) = %d, want 0 after rollback", got)
		}
	})

	t.Run("reentrant purchase during the transfer is rejected", func(t *testing.T) {
		ledger, registry, _ := newLedger()
		mustList(t, ledger, deployer)

		var reentrantErr error
		registry.onTransfer = func(transferCtx context.Context) {
			reentrantErr = ledger.BuyItem(transferCtx, nftContract, tokenId, price, user)
		}

		if err := ledger.BuyItem(ctx, nftContract, tokenId, price, user); err != nil {
			t.Fatalf("BuyItem() error = %v", err)
		}
		if !errors.Is(reentrantErr, ErrReentrantCall) {
			t.Errorf("reentrant BuyItem() error = %v, want ErrReentrantCall", reentrantErr)
		}
		if got := ledger.GetProceeds(deployer); got != price {
			t.Errorf("GetProceeds(deployer) = %d, want %d", got, price)
		}
	})

	t.Run("unrelated caller during the transfer waits instead of failing", func(t *testing.T) {
		ledger, registry, _ := newLedger()
		mustList(t, ledger, deployer)

		otherToken := tokenId + 1
		registry.owners[tokenKey(nftContract, otherToken)] = deployer
		registry.approvals[tokenKey(nftContract, otherToken)] = operator

		// A second listing arrives on its own goroutine with a fresh context
		// while the token transfer is still running. It must serialize behind
		// the sale, not be refused as reentrant.
		listErr := make(chan error, 1)
		registry.onTransfer = func(context.Context) {
			go func() {
				listErr <- ledger.ListItem(context.Background(), nftContract, otherToken, price, deployer)
			}()
		}

		if err := ledger.BuyItem(ctx, nftContract, tokenId, price, user); err != nil {
			t.Fatalf("BuyItem() error = %v", err)
		}
		if err := <-listErr; err != nil {
			t.Fatalf("concurrent ListItem() error = %v", err)
		}
		if listing := ledger.GetListing(nftContract, otherToken); listing.Price != price {
			t.Errorf("listing.Price = %d, want %d", listing.Price, price)
		}
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a zero amount", func(t *testing.T) {
		ledger, _, _ := newLedger()

		if err := ledger.Withdraw(ctx, 0, deployer); !errors.Is(err, ErrAmountNotPositive) {
			t.Fatalf("Withdraw() error = %v, want ErrAmountNotPositive", err)
		}
	})

	t.Run("rejects withdrawal with no proceeds", func(t *testing.T) {
		ledger, _, _ := newLedger()

		if err := ledger.Withdraw(ctx, price, deployer); !errors.Is(err, ErrNoProceeds) {
			t.Fatalf("Withdraw() error = %v, want ErrNoProceeds", err)
		}
	})

	t.Run("rejects withdrawal above the balance", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustSell(t, ledger)

		if err := ledger.Withdraw(ctx, price*2, deployer); !errors.Is(err, ErrWithdrawExcess) {
			t.Fatalf("Withdraw() error = %v, want ErrWithdrawExcess", err)
		}
		if got := ledger.GetProceeds(deployer); got != price {
			t.Errorf("GetProceeds(deployer) = %d, want unchanged %d", got, price)
		}
	})

	t.Run("pays out and debits the balance", func(t *testing.T) {
		ledger, _, funds := newLedger()
		mustSell(t, ledger)

		if err := ledger.Withdraw(ctx, price, deployer); err != nil {
			t.Fatalf("Withdraw() error = %v", err)
		}
		if got := ledger.GetProceeds(deployer); got != 0 {
			t.Errorf("GetProceeds(deployer) = %d, want 0", got)
		}
		if len(funds.payouts) != 1 || funds.payouts[0] != (payout{deployer, price}) {
			t.Errorf("payouts = %+v, want single payout of %d to %s", funds.payouts, price, deployer)
		}
	})

	t.Run("supports partial withdrawal", func(t *testing.T) {
		ledger, _, _ := newLedger()
		mustSell(t, ledger)

		part := price / 4
		if err := ledger.Withdraw(ctx, part, deployer); err != nil {
			t.Fatalf("Withdraw() error = %v", err)
		}
		if got := ledger.GetProceeds(deployer); got != price-part {
			t.Errorf("GetProceeds(deployer) = %d, want %d", got, price-part)
		}
	})

	t.Run("restores the balance when the payout fails", func(t *testing.T) {
		ledger, _, funds := newLedger()
		mustSell(t, ledger)
		funds.transferErr = errors.New("payout rejected")

		if err := ledger.Withdraw(ctx, price, deployer); err == nil {
			t.Fatal("Withdraw() error = nil, want payout failure")
		}
		if got := ledger.GetProceeds(deployer); got != price {
			t.Errorf("GetProceeds(deployer) = %d, want restored %d", got, price)
		}
	})
}

// Exercises the full lifecycle from the reference scenario: list at 0.1,
// buy at 0.1, withdraw 0.1.
func TestListBuyWithdrawFlow(t *testing.T) {
	ctx := context.Background()
	ledger, registry, funds := newLedger()

	if err := ledger.ListItem(ctx, nftContract, tokenId, price, deployer); err != nil {
		t.Fatalf("ListItem() error = %v", err)
	}

	listing := ledger.GetListing(nftContract, tokenId)
	if listing.Price != price || listing.Seller != deployer {
		t.Fatalf("GetListing() = %+v, want price %d seller %s", listing, price, deployer)
	}

	if err := ledger.BuyItem(ctx, nftContract, tokenId, price, user); err != nil {
		t.Fatalf("BuyItem() error = %v", err)
	}
	if listing = ledger.GetListing(nftContract, tokenId); listing.Price != 0 || listing.Seller != "" {
		t.Fatalf("GetListing() after sale = %+v, want zero-value listing", listing)
	}
	if got := ledger.GetProceeds(deployer); got != price {
		t.Fatalf("GetProceeds(deployer) = %d, want %d", got, price)
	}
	if owner := registry.owners[tokenKey(nftContract, tokenId)]; owner != user {
		t.Fatalf("token owner = %s, want %s", owner, user)
	}

	if err := ledger.Withdraw(ctx, price, deployer); err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if got := ledger.GetProceeds(deployer); got != 0 {
		t.Fatalf("GetProceeds(deployer) = %d, want 0", got)
	}
	if len(funds.payouts) != 1 || funds.payouts[0].amount != price {
		t.Fatalf("payouts = %+v, want single payout of %d", funds.payouts, price)
	}
}

func mustList(t *testing.T, ledger *Ledger, seller string) {
	t.Helper()
	if err := ledger.ListItem(context.Background(), nftContract, tokenId, price, seller); err != nil {
		t.Fatalf("ListItem() error = %v", err)
	}
}

func mustSell(t *testing.T, ledger *Ledger) {
	t.Helper()
	mustList(t, ledger, deployer)
	if err := ledger.BuyItem(context.Background(), nftContract, tokenId, price, user); err != nil {
		t.Fatalf("BuyItem() error = %v", err)
	}
}
