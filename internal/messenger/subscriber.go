package messenger

import (
	"encoding/json"

	"github.com/nftdeck/marketplace-ledger/internal/entity"
	"go.uber.org/zap"
)

// Subscriber is the consuming side of the marketplace.events exchange.
// TailActions blocks, delivering each published action to the callback.
type Subscriber interface {
	TailActions(callback func(action entity.MarketplaceAction)) error
}

type subscriber struct {
	messenger MessageService
}

func NewSubscriber(messenger MessageService) Subscriber {
	return subscriber{messenger}
}

func (s subscriber) TailActions(callback func(action entity.MarketplaceAction)) error {
	return s.messenger.ConsumeMessages(MarketplaceEvents, func(msg string) {
		var action entity.MarketplaceAction
		if err := json.Unmarshal([]byte(msg), &action); err != nil {
			zap.L().With(zap.Error(err)).Warn("Subscriber: Failed to unmarshal action")
			return
		}

		callback(action)
	})
}
