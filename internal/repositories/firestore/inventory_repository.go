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

const variantsCollection = "productVariants"

// InventoryRepository reads and adjusts variant stock in Firestore. Stock
// decrements tied to order placement run inside OrderRepository transactions;
// this type covers standalone reads and admin adjustments.
type InventoryRepository struct {
	provider *pfirestore.Provider
	variants *pfirestore.BaseRepository[variantDocument]
}

// NewInventoryRepository constructs a Firestore-backed inventory repository.
func NewInventoryRepository(provider *pfirestore.Provider) (*InventoryRepository, error) {
	if provider == nil {
		return nil, errors.New("inventory repository requires firestore provider")
	}
	variants := pfirestore.NewBaseRepository[variantDocument](provider, variantsCollection, nil, nil)
	return &InventoryRepository{provider: provider, variants: variants}, nil
}

// FindVariant loads one product variant by its document ID.
func (r *InventoryRepository) FindVariant(ctx context.Context, variantID string) (domain.ProductVariant, error) {
	if r == nil || r.variants == nil {
		return domain.ProductVariant{}, errors.New("inventory repository not initialised")
	}
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return domain.ProductVariant{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidInput, "variant id is required", nil)
	}

	doc, err := r.variants.Get(ctx, variantID)
	if err != nil {
		var repoErr *pfirestore.Error
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.ProductVariant{}, repositories.NewInventoryError(repositories.InventoryErrorVariantNotFound, fmt.Sprintf("variant %s not found", variantID), err)
		}
		return domain.ProductVariant{}, wrapInventoryError("inventory.findVariant", err)
	}

	return doc.Data.toDomain(doc.ID), nil
}

// SetStock sets the variant's absolute stock level inside a transaction so
// concurrent order decrements observe a consistent value.
func (r *InventoryRepository) SetStock(ctx context.Context, variantID string, stock int, now time.Time) (domain.ProductVariant, error) {
	if r == nil || r.provider == nil {
		return domain.ProductVariant{}, errors.New("inventory repository not initialised")
	}
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return domain.ProductVariant{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidInput, "variant id is required", nil)
	}
	if stock < 0 {
		return domain.ProductVariant{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidInput, "stock must be >= 0", nil)
	}

	now = now.UTC()
	var updated domain.ProductVariant
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.variants.DocumentRef(ctx, variantID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewInventoryError(repositories.InventoryErrorVariantNotFound, fmt.Sprintf("variant %s not found", variantID), err)
			}
			return err
		}
		doc, err := decodeVariant(snap)
		if err != nil {
			return err
		}
		doc.Stock = stock
		doc.UpdatedAt = now
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated = doc.toDomain(variantID)
		return nil
	})
	if err != nil {
		return domain.ProductVariant{}, wrapInventoryError("inventory.setStock", err)
	}
	return updated, nil
}

// ListLowStock returns variants whose stock sits at or below the threshold,
// lowest stock first.
func (r *InventoryRepository) ListLowStock(ctx context.Context, query repositories.LowStockQuery) (domain.CursorPage[domain.ProductVariant], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.ProductVariant]{}, errors.New("inventory repository not initialised")
	}
	threshold := query.Threshold
	if threshold < 0 {
		return domain.CursorPage[domain.ProductVariant]{}, repositories.NewInventoryError(repositories.InventoryErrorInvalidInput, "threshold must be >= 0", nil)
	}

	pageSize := query.Pagination.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.ProductVariant]{}, wrapInventoryError("inventory.lowStock", err)
	}

	firestoreQuery := client.Collection(variantsCollection).Query.
		Where("stock", "<=", threshold).
		OrderBy("stock", firestore.Asc).
		OrderBy("sku", firestore.Asc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(query.Pagination.PageToken); token != "" {
		decoded, err := decodeVariantPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.ProductVariant]{}, wrapInventoryError("inventory.lowStock", err)
		}
		firestoreQuery = firestoreQuery.StartAfter(decoded.Stock, decoded.SKU)
	}

	iter := firestoreQuery.Documents(ctx)
	defer iter.Stop()

	var variants []domain.ProductVariant
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.ProductVariant]{}, wrapInventoryError("inventory.lowStock", err)
		}
		doc, err := decodeVariant(snap)
		if err != nil {
			return domain.CursorPage[domain.ProductVariant]{}, err
		}
		variants = append(variants, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(variants) > pageSize
	if hasMore {
		variants = variants[:pageSize]
	}
	var nextToken string
	if hasMore && len(variants) > 0 {
		last := variants[len(variants)-1]
		encoded, err := encodeVariantPageToken(variantPageToken{SKU: last.SKU, Stock: last.Stock})
		if err != nil {
			return domain.CursorPage[domain.ProductVariant]{}, wrapInventoryError("inventory.lowStock", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.ProductVariant]{
		Items:         variants,
		NextPageToken: nextToken,
	}, nil
}

// Helper structures ---------------------------------------------------------

type variantDocument struct {
	ProductID string    `firestore:"productId"`
	SKU       string    `firestore:"sku"`
	Name      string    `firestore:"name"`
	Size      string    `firestore:"size"`
	Colour    string    `firestore:"colour"`
	Material  string    `firestore:"material"`
	Price     int64     `firestore:"price"`
	Stock     int       `firestore:"stock"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (d variantDocument) toDomain(id string) domain.ProductVariant {
	return domain.ProductVariant{
		ID:        id,
		ProductID: strings.TrimSpace(d.ProductID),
		SKU:       strings.TrimSpace(d.SKU),
		Name:      strings.TrimSpace(d.Name),
		Size:      strings.TrimSpace(d.Size),
		Colour:    strings.TrimSpace(d.Colour),
		Material:  strings.TrimSpace(d.Material),
		Price:     d.Price,
		Stock:     d.Stock,
		UpdatedAt: d.UpdatedAt,
	}
}

func decodeVariant(snap *firestore.DocumentSnapshot) (variantDocument, error) {
	var doc variantDocument
	if err := snap.DataTo(&doc); err != nil {
		return variantDocument{}, fmt.Errorf("decode variant %s: %w", snap.Ref.ID, err)
	}
	return doc, nil
}

type variantPageToken struct {
	SKU   string
	Stock int
}

func encodeVariantPageToken(token variantPageToken) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode variant page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeVariantPageToken(encoded string) (*variantPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode variant page token: %w", err)
	}
	var token variantPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode variant page token json: %w", err)
	}
	return &token, nil
}

func wrapInventoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var invErr *repositories.InventoryError
	if errors.As(err, &invErr) {
		if invErr.Op == "" {
			invErr.Op = op
		}
		return invErr
	}
	return pfirestore.WrapError(op, err)
}

var _ repositories.InventoryRepository = (*InventoryRepository)(nil)
