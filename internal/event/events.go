package event

type Type string

const (
	ItemListedEvent    Type = "ItemListedEvent"
	ItemCanceledEvent  Type = "ItemCanceledEvent"
	ItemBoughtEvent    Type = "ItemBoughtEvent"
	ItemWithdrawnEvent Type = "ItemWithdrawnEvent"
)
