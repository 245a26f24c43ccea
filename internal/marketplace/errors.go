package marketplace

import "errors"

// Domain failures. Every operation leaves the ledger unchanged when it returns
// one of these; callers fix the input and resubmit.
var (
	ErrPriceInvalid     = errors.New("price invalid")
	ErrNotApproved      = errors.New("marketplace is not approved for token")
	ErrIsNotListed      = errors.New("item is not listed")
	ErrIsNotOwner       = errors.New("caller is not the token owner")
	ErrPaymentNotEnough = errors.New("payment is not enough")
	ErrWithdrawExcess   = errors.New("withdraw amount exceeds proceeds")

	ErrReentrantCall = errors.New("reentrant call")
)

// Withdraw guard clauses. Kept as plain errors, distinct from ErrWithdrawExcess.
var (
	ErrAmountNotPositive = errors.New("amount less than 0")
	ErrNoProceeds        = errors.New("total less than 0")
	ErrProceedsOverflow  = errors.New("proceeds balance overflow")
)
