package store

import (
	"sync"

	"github.com/nftdeck/marketplace-ledger/internal/entity"
)

// Store holds the two persistent ledger mappings. Listings are stored with
// explicit presence so that "never listed" and "just removed" are the same
// observable absence. Proceeds balances persist at zero forever.
type Store interface {
	GetListing(contract string, tokenId uint64) (entity.Listing, bool)
	PutListing(listing entity.Listing)
	DeleteListing(contract string, tokenId uint64)

	GetProceeds(account string) uint64
	SetProceeds(account string, amount uint64)
}

type listingKey struct {
	contract string
	tokenId  uint64
}

type memoryStore struct {
	mu       sync.RWMutex
	listings map[listingKey]entity.Listing
	proceeds map[string]uint64
}

func NewMemoryStore() Store {
	return &memoryStore{
		listings: make(map[listingKey]entity.Listing),
		proceeds: make(map[string]uint64),
	}
}

func (s *memoryStore) GetListing(contract string, tokenId uint64) (entity.Listing, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	listing, ok := s.listings[listingKey{contract, tokenId}]
	return listing, ok
}

func (s *memoryStore) PutListing(listing entity.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings[listingKey{listing.Contract, listing.TokenId}] = listing
}

func (s *memoryStore) DeleteListing(contract string, tokenId uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.listings, listingKey{contract, tokenId})
}

func (s *memoryStore) GetProceeds(account string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.proceeds[account]
}

func (s *memoryStore) SetProceeds(account string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.proceeds[account] = amount
}
