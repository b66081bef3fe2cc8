package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	pfirestore "github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/firestore"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

const addressCollectionPattern = "users/%s/addresses"

// AddressRepository reads the shipping addresses stored per user. Orders copy
// the address into the order document, so these reads happen at placement
// time only.
type AddressRepository struct {
	provider *pfirestore.Provider
}

// NewAddressRepository constructs a Firestore-backed address repository.
func NewAddressRepository(provider *pfirestore.Provider) (*AddressRepository, error) {
	if provider == nil {
		return nil, errors.New("address repository requires firestore provider")
	}
	return &AddressRepository{provider: provider}, nil
}

// Get loads one address from the user's address book.
func (r *AddressRepository) Get(ctx context.Context, userID string, addressID string) (domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return domain.Address{}, err
	}
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return domain.Address{}, errors.New("address id is required")
	}

	snap, err := coll.Doc(addressID).Get(ctx)
	if err != nil {
		return domain.Address{}, pfirestore.WrapError("addresses.get", err)
	}

	var doc addressDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.Address{}, fmt.Errorf("decode address %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

// List returns the user's addresses.
func (r *AddressRepository) List(ctx context.Context, userID string) ([]domain.Address, error) {
	coll, err := r.collection(ctx, userID)
	if err != nil {
		return nil, err
	}

	iter := coll.OrderBy("name", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var results []domain.Address
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, pfirestore.WrapError("addresses.list", err)
		}
		var doc addressDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode address %s: %w", snap.Ref.ID, err)
		}
		results = append(results, doc.toDomain(snap.Ref.ID))
	}
	return results, nil
}

func (r *AddressRepository) collection(ctx context.Context, userID string) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, errors.New("address repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(fmt.Sprintf(addressCollectionPattern, userID)), nil
}

// Helper structures ---------------------------------------------------------

type addressDocument struct {
	Name    string `firestore:"name"`
	Street  string `firestore:"street"`
	City    string `firestore:"city"`
	State   string `firestore:"state"`
	Pincode string `firestore:"pincode"`
	Phone   string `firestore:"phone,omitempty"`
}

func newAddressDocument(address domain.Address) addressDocument {
	return addressDocument{
		Name:    strings.TrimSpace(address.Name),
		Street:  strings.TrimSpace(address.Street),
		City:    strings.TrimSpace(address.City),
		State:   strings.TrimSpace(address.State),
		Pincode: strings.TrimSpace(address.Pincode),
		Phone:   strings.TrimSpace(address.Phone),
	}
}

func (d addressDocument) toDomain(id string) domain.Address {
	return domain.Address{
		ID:      id,
		Name:    d.Name,
		Street:  d.Street,
		City:    d.City,
		State:   d.State,
		Pincode: d.Pincode,
		Phone:   d.Phone,
	}
}

var _ repositories.AddressRepository = (*AddressRepository)(nil)
