package entity

import (
	"fmt"

	"github.com/gosimple/slug"
)

// Listing is an active sale offer for a single token. Price is always greater
// than zero while the listing exists; the store removes the record entirely on
// cancel or sale rather than zeroing it out.
type Listing struct {
	Contract string `json:"contract"`
	TokenId  uint64 `json:"tokenId"`
	Price    uint64 `json:"price"`
	Seller   string `json:"seller"`
}

func (l Listing) Slug() string {
	return CreateListingSlug(l.TokenId, l.Contract)
}

func CreateListingSlug(tokenId uint64, contract string) string {
	return slug.Make(fmt.Sprintf("listing-%d-%s", tokenId, contract))
}
