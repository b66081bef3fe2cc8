package firestore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	pfirestore "github.com/balamernstackdev/thulasi-textiles-sub000/internal/platform/firestore"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

const loyaltyCollection = "loyaltyTransactions"

// loyaltyTxPrefix keys grant documents by order so a second grant for the
// same order collides instead of double awarding.
const loyaltyTxPrefix = "ltx_"

// LoyaltyRepository grants reward points and keeps the user's balance in step
// with the transaction log.
type LoyaltyRepository struct {
	provider     *pfirestore.Provider
	transactions *pfirestore.BaseRepository[loyaltyDocument]
	users        *pfirestore.BaseRepository[userDocument]
}

// NewLoyaltyRepository constructs a Firestore-backed loyalty repository.
func NewLoyaltyRepository(provider *pfirestore.Provider) (*LoyaltyRepository, error) {
	if provider == nil {
		return nil, errors.New("loyalty repository requires firestore provider")
	}
	return &LoyaltyRepository{
		provider:     provider,
		transactions: pfirestore.NewBaseRepository[loyaltyDocument](provider, loyaltyCollection, nil, nil),
		users:        pfirestore.NewBaseRepository[userDocument](provider, userCollection, nil, nil),
	}, nil
}

// Grant awards points for an order. The grant document ID is derived from the
// order ID, so a repeat call finds the existing document and reports Granted
// false with the current balance, leaving everything untouched.
func (r *LoyaltyRepository) Grant(ctx context.Context, grant repositories.LoyaltyGrant) (repositories.LoyaltyGrantResult, error) {
	if r == nil || r.provider == nil {
		return repositories.LoyaltyGrantResult{}, errors.New("loyalty repository not initialised")
	}
	userID := strings.TrimSpace(grant.UserID)
	orderID := strings.TrimSpace(grant.OrderID)
	if userID == "" || orderID == "" {
		return repositories.LoyaltyGrantResult{}, errors.New("loyalty grant: user id and order id are required")
	}
	if grant.Points <= 0 {
		return repositories.LoyaltyGrantResult{}, errors.New("loyalty grant: points must be positive")
	}

	now := grant.Now.UTC()
	txID := loyaltyTxPrefix + orderID

	var result repositories.LoyaltyGrantResult
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		txRef, err := r.transactions.DocumentRef(ctx, txID)
		if err != nil {
			return err
		}
		userRef, err := r.users.DocumentRef(ctx, userID)
		if err != nil {
			return err
		}

		existingSnap, err := tx.Get(txRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		userSnap, err := tx.Get(userRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		var userDoc userDocument
		if userSnap != nil && userSnap.Exists() {
			if err := userSnap.DataTo(&userDoc); err != nil {
				return fmt.Errorf("decode user %s: %w", userID, err)
			}
		}

		if existingSnap != nil && existingSnap.Exists() {
			var existing loyaltyDocument
			if err := existingSnap.DataTo(&existing); err != nil {
				return fmt.Errorf("decode loyalty transaction %s: %w", txID, err)
			}
			result = repositories.LoyaltyGrantResult{
				Granted:     false,
				Transaction: existing.toDomain(txID),
				Balance:     userDoc.LoyaltyPoints,
			}
			return nil
		}

		doc := loyaltyDocument{
			UserID:    userID,
			OrderID:   orderID,
			Points:    grant.Points,
			Reason:    strings.TrimSpace(grant.Reason),
			CreatedAt: now,
		}
		if err := tx.Create(txRef, doc); err != nil {
			return err
		}

		userDoc.UID = userID
		userDoc.LoyaltyPoints += grant.Points
		userDoc.UpdatedAt = now
		if userDoc.CreatedAt.IsZero() {
			userDoc.CreatedAt = now
		}
		if err := tx.Set(userRef, userDoc); err != nil {
			return err
		}

		result = repositories.LoyaltyGrantResult{
			Granted:     true,
			Transaction: doc.toDomain(txID),
			Balance:     userDoc.LoyaltyPoints,
		}
		return nil
	})
	if err != nil {
		return repositories.LoyaltyGrantResult{}, pfirestore.WrapError("loyalty.grant", err)
	}
	return result, nil
}

// ListByUser returns the user's loyalty transactions, newest first.
func (r *LoyaltyRepository) ListByUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.LoyaltyTransaction], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.LoyaltyTransaction]{}, errors.New("loyalty repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.LoyaltyTransaction]{}, errors.New("user id is required")
	}

	pageSize := pager.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.LoyaltyTransaction]{}, pfirestore.WrapError("loyalty.list", err)
	}

	query := client.Collection(loyaltyCollection).Query.
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(pager.PageToken); token != "" {
		decoded, err := decodeLoyaltyPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.LoyaltyTransaction]{}, pfirestore.WrapError("loyalty.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var transactions []domain.LoyaltyTransaction
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.LoyaltyTransaction]{}, pfirestore.WrapError("loyalty.list", err)
		}
		var doc loyaltyDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.LoyaltyTransaction]{}, fmt.Errorf("decode loyalty transaction %s: %w", snap.Ref.ID, err)
		}
		transactions = append(transactions, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(transactions) > pageSize
	if hasMore {
		transactions = transactions[:pageSize]
	}
	var nextToken string
	if hasMore && len(transactions) > 0 {
		last := transactions[len(transactions)-1]
		encoded, err := encodeLoyaltyPageToken(loyaltyPageToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.LoyaltyTransaction]{}, pfirestore.WrapError("loyalty.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.LoyaltyTransaction]{
		Items:         transactions,
		NextPageToken: nextToken,
	}, nil
}

// Helper structures ---------------------------------------------------------

type loyaltyDocument struct {
	UserID    string    `firestore:"userId"`
	OrderID   string    `firestore:"orderId"`
	Points    int64     `firestore:"points"`
	Reason    string    `firestore:"reason,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (d loyaltyDocument) toDomain(id string) domain.LoyaltyTransaction {
	return domain.LoyaltyTransaction{
		ID:        id,
		UserID:    d.UserID,
		OrderID:   d.OrderID,
		Points:    d.Points,
		Reason:    d.Reason,
		CreatedAt: d.CreatedAt,
	}
}

type loyaltyPageToken struct {
	CreatedAt time.Time
	ID        string
}

func encodeLoyaltyPageToken(token loyaltyPageToken) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode loyalty page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeLoyaltyPageToken(encoded string) (*loyaltyPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode loyalty page token: %w", err)
	}
	var token loyaltyPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode loyalty page token json: %w", err)
	}
	return &token, nil
}

var _ repositories.LoyaltyRepository = (*LoyaltyRepository)(nil)
