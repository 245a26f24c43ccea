package entity

import (
	"crypto/md5"
	"fmt"
	"time"
)

// MarketplaceAction is the indexed record of a single ledger mutation. It is
// what off-chain consumers (the action index, the message exchange) see.
type MarketplaceAction struct {
	Contract string     `json:"contract"`
	TokenId  uint64     `json:"tokenId"`
	Action   ActionType `json:"action"`
	Seller   string     `json:"seller"`
	Buyer    string     `json:"buyer"`
	Price    uint64     `json:"price"`
	Time     time.Time  `json:"time"`
}

type ActionType string

const (
	ListedAction    ActionType = "listed"
	CanceledAction  ActionType = "canceled"
	BoughtAction    ActionType = "bought"
	WithdrawnAction ActionType = "withdrawn"
)

func (a MarketplaceAction) Slug() string {
	return CreateMarketplaceActionSlug(a.TokenId, a.Contract, string(a.Action), a.Time.UnixNano())
}

func CreateMarketplaceActionSlug(tokenId uint64, contract, action string, nano int64) string {
	data := []byte(fmt.Sprintf("action-%d-%s-%s-%d", tokenId, contract, action, nano))
	return fmt.Sprintf("%x", md5.Sum(data))
}
