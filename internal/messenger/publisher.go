package messenger

import (
	"encoding/json"

	"github.com/nftdeck/marketplace-ledger/internal/entity"
	"go.uber.org/zap"
)

// Publisher forwards ledger events to the marketplace.events exchange for
// front ends. PublishAction is wired as an event listener callback.
type Publisher interface {
	PublishAction(msg interface{})
}

type publisher struct {
	messenger MessageService
}

func NewPublisher(messenger MessageService) Publisher {
	return publisher{messenger}
}

func (p publisher) PublishAction(msg interface{}) {
	action, ok := msg.(entity.MarketplaceAction)
	if !ok {
		zap.L().Warn("Publisher: Unexpected event payload")
		return
	}

	body, err := json.Marshal(action)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Publisher: Failed to marshal action")
		return
	}

	if err := p.messenger.SendMessage(MarketplaceEvents, body, false); err != nil {
		zap.L().With(zap.Error(err)).Error("Publisher: Failed to publish action")
	}
}
