package entity

import (
	"fmt"

	"github.com/gosimple/slug"
)

// Proceeds is the withdrawable balance owed to a seller from completed sales.
// Balances are created implicitly at zero and never deleted.
type Proceeds struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

func (p Proceeds) Slug() string {
	return slug.Make(fmt.Sprintf("proceeds-%s", p.Account))
}
