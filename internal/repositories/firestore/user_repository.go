package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	pfirestore "github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/firestore"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

const userCollection = "users"

// UserRepository reads user profile documents. Loyalty balance writes happen
// inside LoyaltyRepository grants so the balance and the transaction log move
// together.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) (*UserRepository, error) {
	if provider == nil {
		return nil, errors.New("user repository requires firestore provider")
	}
	return &UserRepository{
		base: pfirestore.NewBaseRepository[userDocument](provider, userCollection, nil, nil),
	}, nil
}

// FindByID loads the user profile by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	if r == nil || r.base == nil {
		return domain.UserProfile{}, errors.New("user repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.UserProfile{}, errors.New("user id is required")
	}

	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}

	profile := doc.Data.toDomain(doc.ID)
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = doc.CreateTime
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = doc.UpdateTime
	}
	return profile, nil
}

type userDocument struct {
	UID           string    `firestore:"uid"`
	Name          string    `firestore:"name"`
	Email         string    `firestore:"email"`
	Phone         string    `firestore:"phone"`
	LoyaltyPoints int64     `firestore:"loyaltyPoints"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func (d userDocument) toDomain(id string) domain.UserProfile {
	return domain.UserProfile{
		UID:           id,
		Name:          strings.TrimSpace(d.Name),
		Email:         strings.TrimSpace(d.Email),
		Phone:         strings.TrimSpace(d.Phone),
		LoyaltyPoints: d.LoyaltyPoints,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

var _ repositories.UserRepository = (*UserRepository)(nil)
