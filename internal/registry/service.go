package registry

import (
	"context"

	"go.uber.org/zap"
)

// Service is the registry surface the ledger consumes: ownership and approval
// queries, token transfer on sale, and the native-currency payout used by
// withdrawals.
type Service interface {
	OwnerOf(ctx context.Context, contract string, tokenId uint64) (string, error)
	GetApproved(ctx context.Context, contract string, tokenId uint64) (string, error)
	TransferFrom(ctx context.Context, contract string, tokenId uint64, from, to string) error
	Transfer(ctx context.Context, to string, amount uint64) error
}

type service struct {
	provider *Provider
}

func NewService(provider *Provider) Service {
	return service{provider}
}

func (s service) OwnerOf(_ context.Context, contract string, tokenId uint64) (string, error) {
	return s.provider.GetTokenOwner(contract, tokenId)
}

func (s service) GetApproved(_ context.Context, contract string, tokenId uint64) (string, error) {
	return s.provider.GetApprovedSpender(contract, tokenId)
}

func (s service) TransferFrom(_ context.Context, contract string, tokenId uint64, from, to string) error {
	txId, err := s.provider.TransferToken(contract, tokenId, from, to)
	if err != nil {
		return err
	}

	zap.L().With(
		zap.String("contract", contract),
		zap.Uint64("tokenId", tokenId),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("txId", txId),
	).Info("Registry: Token transferred")

	return nil
}

func (s service) Transfer(_ context.Context, to string, amount uint64) error {
	txId, err := s.provider.TransferFunds(to, amount)
	if err != nil {
		return err
	}

	zap.L().With(
		zap.String("to", to),
		zap.Uint64("amount", amount),
		zap.String("txId", txId),
	).Info("Registry: Funds transferred")

	return nil
}
