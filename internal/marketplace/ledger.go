package marketplace

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nftdeck/marketplace-ledger/internal/entity"
	"github.com/nftdeck/marketplace-ledger/internal/event"
	"github.com/nftdeck/marketplace-ledger/internal/store"
	"go.uber.org/zap"
)

// AssetRegistry is the external collaborator that owns the truth about token
// ownership and transfer approvals. The ledger never mutates tokens itself.
type AssetRegistry interface {
	OwnerOf(ctx context.Context, contract string, tokenId uint64) (string, error)
	GetApproved(ctx context.Context, contract string, tokenId uint64) (string, error)
	TransferFrom(ctx context.Context, contract string, tokenId uint64, from, to string) error
}

// FundsTransferrer moves native currency out of the marketplace on withdrawal.
type FundsTransferrer interface {
	Transfer(ctx context.Context, to string, amount uint64) error
}

type Ledger struct {
	store    store.Store
	registry AssetRegistry
	funds    FundsTransferrer
	operator string

	mu sync.Mutex
}

// busyKey marks a context handed to an outbound transfer. A call arriving with
// the marker came from inside that transfer and must not take the lock.
type busyKey struct{}

// NewLedger returns a marketplace ledger trading tokens held by the given
// operator account. State-changing operations run one at a time to completion.
func NewLedger(s store.Store, registry AssetRegistry, funds FundsTransferrer, operator string) *Ledger {
	return &Ledger{store: s, registry: registry, funds: funds, operator: operator}
}

// begin serializes state-changing operations. A context carrying the busy
// marker means the caller reentered from an outbound transfer; it fails fast
// instead of deadlocking on the mutex. Unrelated concurrent callers carry no
// marker and simply wait their turn.
func (l *Ledger) begin(ctx context.Context) error {
	if ctx.Value(busyKey{}) != nil {
		return ErrReentrantCall
	}

	l.mu.Lock()
	return nil
}

func (l *Ledger) end() {
	l.mu.Unlock()
}

// external marks the window in which control leaves the ledger. Local state is
// always committed before this runs, so a reentrant caller observes consistent
// bookkeeping; the marker is defense in depth on top of that ordering.
func (l *Ledger) external(ctx context.Context, call func(ctx context.Context) error) error {
	return call(context.WithValue(ctx, busyKey{}, struct{}{}))
}

// ListItem creates or overwrites the listing for (contract, tokenId). The
// caller must be the current owner and the marketplace operator must hold
// transfer approval. Re-listing an already listed token overwrites it.
func (l *Ledger) ListItem(ctx context.Context, contract string, tokenId uint64, price uint64, caller string) error {
	if err := l.begin(ctx); err != nil {
		return err
	}
	defer l.end()

	if price == 0 {
		return fmt.Errorf("%w: price must be above zero", ErrPriceInvalid)
	}

	owner, err := l.registry.OwnerOf(ctx, contract, tokenId)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %s does not own token %d on %s", ErrIsNotOwner, caller, tokenId, contract)
	}

	approved, err := l.registry.GetApproved(ctx, contract, tokenId)
	if err != nil {
		return err
	}
	if approved != l.operator {
		return fmt.Errorf("%w: token %d on %s", ErrNotApproved, tokenId, contract)
	}

	listing := entity.Listing{Contract: contract, TokenId: tokenId, Price: price, Seller: caller}
	l.store.PutListing(listing)

	zap.L().With(
		zap.String("contract", contract),
		zap.Uint64("tokenId", tokenId),
		zap.Uint64("price", price),
		zap.String("seller", caller),
	).Info("Marketplace: Item listed")

	event.EmitEvent(event.ItemListedEvent, entity.MarketplaceAction{
		Contract: contract,
		TokenId:  tokenId,
		Action:   entity.ListedAction,
		Seller:   caller,
		Price:    price,
		Time:     time.Now(),
	})

	return nil
}

// CancelListing removes the listing. Ownership is rechecked against the
// registry rather than the stored seller since the token may have moved since
// listing time.
func (l *Ledger) CancelListing(ctx context.Context, contract string, tokenId uint64, caller string) error {
	if err := l.begin(ctx); err != nil {
		return err
	}
	defer l.end()

	if _, ok := l.store.GetListing(contract, tokenId); !ok {
		return fmt.Errorf("%w: token %d on %s", ErrIsNotListed, tokenId, contract)
	}

	owner, err := l.registry.OwnerOf(ctx, contract, tokenId)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %s does not own token %d on %s", ErrIsNotOwner, caller, tokenId, contract)
	}

	l.store.DeleteListing(contract, tokenId)

	zap.L().With(
		zap.String("contract", contract),
		zap.Uint64("tokenId", tokenId),
		zap.String("seller", caller),
	).Info("Marketplace: Item canceled")

	event.EmitEvent(event.ItemCanceledEvent, entity.MarketplaceAction{
		Contract: contract,
		TokenId:  tokenId,
		Action:   entity.CanceledAction,
		Seller:   caller,
		Time:     time.Now(),
	})

	return nil
}

// UpdateListing overwrites the price of an existing listing. The seller is
// left untouched. The same price rule as ListItem applies.
func (l *Ledger) UpdateListing(ctx context.Context, contract string, tokenId uint64, newPrice uint64, caller string) error {
	if err := l.begin(ctx); err != nil {
		return err
	}
	defer l.end()

	listing, ok := l.store.GetListing(contract, tokenId)
	if !ok {
		return fmt.Errorf("%w: token %d on %s", ErrIsNotListed, tokenId, contract)
	}

	owner, err := l.registry.OwnerOf(ctx, contract, tokenId)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: %s does not own token %d on %s", ErrIsNotOwner, caller, tokenId, contract)
	}

	if newPrice == 0 {
		return fmt.Errorf("%w: price must be above zero", ErrPriceInvalid)
	}

	listing.Price = newPrice
	l.store.PutListing(listing)

	zap.L().With(
		zap.String("contract", contract),
		zap.Uint64("tokenId", tokenId),
		zap.Uint64("price", newPrice),
		zap.String("seller", listing.Seller),
	).Info("Marketplace: Listing updated")

	event.EmitEvent(event.ItemListedEvent, entity.MarketplaceAction{
		Contract: contract,
		TokenId:  tokenId,
		Action:   entity.ListedAction,
		Seller:   listing.Seller,
		Price:    newPrice,
		Time:     time.Now(),
	})

	return nil
}

// BuyItem sells the listed token to the buyer. Payment at or above the listed
// price is accepted and credited to the seller in full. The proceeds credit
// and the listing removal are committed before the registry transfer runs, so
// a reentrant call during the transfer observes the item as not listed. A
// failed transfer rolls both back.
func (l *Ledger) BuyItem(ctx context.Context, contract string, tokenId uint64, payment uint64, buyer string) error {
	if err := l.begin(ctx); err != nil {
		return err
	}
	defer l.end()

	listing, ok := l.store.GetListing(contract, tokenId)
	if !ok {
		return fmt.Errorf("%w: token %d on %s", ErrIsNotListed, tokenId, contract)
	}

	if payment < listing.Price {
		return fmt.Errorf("%w: paid %d, price %d", ErrPaymentNotEnough, payment, listing.Price)
	}

	balance := l.store.GetProceeds(listing.Seller)
	if payment > math.MaxUint64-balance {
		return ErrProceedsOverflow
	}

	l.store.SetProceeds(listing.Seller, balance+payment)
	l.store.DeleteListing(contract, tokenId)

	err := l.external(ctx, func(ctx context.Context) error {
		return l.registry.TransferFrom(ctx, contract, tokenId, listing.Seller, buyer)
	})
	if err != nil {
		l.store.SetProceeds(listing.Seller, balance)
		l.store.PutListing(listing)
		zap.L().With(
			zap.String("contract", contract),
			zap.Uint64("tokenId", tokenId),
			zap.Error(err),
		).Error("Marketplace: Token transfer failed, sale rolled back")
		return err
	}

	zap.L().With(
		zap.String("contract", contract),
		zap.Uint64("tokenId", tokenId),
		zap.Uint64("paid", payment),
		zap.String("buyer", buyer),
		zap.String("seller", listing.Seller),
	).Info("Marketplace: Item bought")

	event.EmitEvent(event.ItemBoughtEvent, entity.MarketplaceAction{
		Contract: contract,
		TokenId:  tokenId,
		Action:   entity.BoughtAction,
		Seller:   listing.Seller,
		Buyer:    buyer,
		Price:    payment,
		Time:     time.Now(),
	})

	return nil
}

// Withdraw pays out accumulated proceeds to the caller. The balance is debited
// before the outbound transfer; a failed transfer restores it so no partial
// withdrawal is ever observable.
func (l *Ledger) Withdraw(ctx context.Context, amount uint64, caller string) error {
	if err := l.begin(ctx); err != nil {
		return err
	}
	defer l.end()

	if amount == 0 {
		return ErrAmountNotPositive
	}

	balance := l.store.GetProceeds(caller)
	if balance == 0 {
		return ErrNoProceeds
	}
	if amount > balance {
		return fmt.Errorf("%w: requested %d, balance %d", ErrWithdrawExcess, amount, balance)
	}

	l.store.SetProceeds(caller, balance-amount)

	err := l.external(ctx, func(ctx context.Context) error {
		return l.funds.Transfer(ctx, caller, amount)
	})
	if err != nil {
		l.store.SetProceeds(caller, balance)
		zap.L().With(
			zap.String("account", caller),
			zap.Uint64("amount", amount),
			zap.Error(err),
		).Error("Marketplace: Payout failed, withdrawal rolled back")
		return err
	}

	zap.L().With(
		zap.String("account", caller),
		zap.Uint64("amount", amount),
	).Info("Marketplace: Proceeds withdrawn")

	event.EmitEvent(event.ItemWithdrawnEvent, entity.MarketplaceAction{
		Action: entity.WithdrawnAction,
		Seller: caller,
		Price:  amount,
		Time:   time.Now(),
	})

	return nil
}

// GetListing returns the listing for (contract, tokenId), or a zero-value
// listing when nothing is listed. Never fails.
func (l *Ledger) GetListing(contract string, tokenId uint64) entity.Listing {
	listing, ok := l.store.GetListing(contract, tokenId)
	if !ok {
		return entity.Listing{Contract: contract, TokenId: tokenId}
	}

	return listing
}

// GetProceeds returns the withdrawable balance for an account, zero for
// accounts with no sale history. Never fails.
func (l *Ledger) GetProceeds(account string) uint64 {
	return l.store.GetProceeds(account)
}
