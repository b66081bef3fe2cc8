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

const notificationsCollection = "notifications"

// NotificationRepository stores in-app notifications for users and admins.
type NotificationRepository struct {
	provider      *pfirestore.Provider
	notifications *pfirestore.BaseRepository[notificationDocument]
}

// NewNotificationRepository constructs a Firestore-backed notification repository.
func NewNotificationRepository(provider *pfirestore.Provider) (*NotificationRepository, error) {
	if provider == nil {
		return nil, errors.New("notification repository requires firestore provider")
	}
	return &NotificationRepository{
		provider:      provider,
		notifications: pfirestore.NewBaseRepository[notificationDocument](provider, notificationsCollection, nil, nil),
	}, nil
}

// Insert persists one notification document.
func (r *NotificationRepository) Insert(ctx context.Context, notification domain.Notification) error {
	if r == nil || r.notifications == nil {
		return errors.New("notification repository not initialised")
	}
	if strings.TrimSpace(notification.ID) == "" {
		return errors.New("notification id is required")
	}

	if _, err := r.notifications.Set(ctx, notification.ID, newNotificationDocument(notification)); err != nil {
		return pfirestore.WrapError("notifications.insert", err)
	}
	return nil
}

// ListForUser returns the user's notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, pager domain.Pagination) (domain.CursorPage[domain.Notification], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[domain.Notification]{}, errors.New("user id is required")
	}
	return r.list(ctx, pager, func(query firestore.Query) firestore.Query {
		return query.Where("userId", "==", userID)
	})
}

// ListForAdmins returns notifications addressed to the admin audience, newest first.
func (r *NotificationRepository) ListForAdmins(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Notification], error) {
	return r.list(ctx, pager, func(query firestore.Query) firestore.Query {
		return query.Where("forAdmins", "==", true)
	})
}

// MarkRead flags the notification read, verifying it belongs to the user.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID string, notificationID string, now time.Time) error {
	if r == nil || r.provider == nil {
		return errors.New("notification repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	notificationID = strings.TrimSpace(notificationID)
	if userID == "" || notificationID == "" {
		return errors.New("user id and notification id are required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.notifications.DocumentRef(ctx, notificationID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc notificationDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode notification %s: %w", notificationID, err)
		}
		if !doc.ForAdmins && doc.UserID != userID {
			return status.Error(codes.NotFound, "notification does not belong to user")
		}
		if doc.Read {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "read", Value: true},
			{Path: "readAt", Value: now.UTC()},
		})
	})
	return pfirestore.WrapError("notifications.markRead", err)
}

func (r *NotificationRepository) list(ctx context.Context, pager domain.Pagination, scope func(firestore.Query) firestore.Query) (domain.CursorPage[domain.Notification], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Notification]{}, errors.New("notification repository not initialised")
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
		return domain.CursorPage[domain.Notification]{}, pfirestore.WrapError("notifications.list", err)
	}

	query := scope(client.Collection(notificationsCollection).Query).
		OrderBy("createdAt", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc).
		Limit(pageSize + 1)

	if token := strings.TrimSpace(pager.PageToken); token != "" {
		decoded, err := decodeNotificationPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Notification]{}, pfirestore.WrapError("notifications.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var notifications []domain.Notification
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Notification]{}, pfirestore.WrapError("notifications.list", err)
		}
		var doc notificationDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Notification]{}, fmt.Errorf("decode notification %s: %w", snap.Ref.ID, err)
		}
		notifications = append(notifications, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(notifications) > pageSize
	if hasMore {
		notifications = notifications[:pageSize]
	}
	var nextToken string
	if hasMore && len(notifications) > 0 {
		last := notifications[len(notifications)-1]
		encoded, err := encodeNotificationPageToken(notificationPageToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Notification]{}, pfirestore.WrapError("notifications.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Notification]{
		Items:         notifications,
		NextPageToken: nextToken,
	}, nil
}

// Helper structures ---------------------------------------------------------

type notificationDocument struct {
	UserID    string     `firestore:"userId,omitempty"`
	ForAdmins bool       `firestore:"forAdmins"`
	Title     string     `firestore:"title"`
	Message   string     `firestore:"message"`
	Type      string     `firestore:"type"`
	Link      string     `firestore:"link,omitempty"`
	Read      bool       `firestore:"read"`
	ReadAt    *time.Time `firestore:"readAt,omitempty"`
	CreatedAt time.Time  `firestore:"createdAt"`
}

func newNotificationDocument(notification domain.Notification) notificationDocument {
	return notificationDocument{
		UserID:    strings.TrimSpace(notification.UserID),
		ForAdmins: notification.ForAdmins,
		Title:     strings.TrimSpace(notification.Title),
		Message:   strings.TrimSpace(notification.Message),
		Type:      string(notification.Type),
		Link:      strings.TrimSpace(notification.Link),
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt.UTC(),
	}
}

func (d notificationDocument) toDomain(id string) domain.Notification {
	return domain.Notification{
		ID:        id,
		UserID:    d.UserID,
		ForAdmins: d.ForAdmins,
		Title:     d.Title,
		Message:   d.Message,
		Type:      domain.NotificationType(d.Type),
		Link:      d.Link,
		Read:      d.Read,
		CreatedAt: d.CreatedAt,
	}
}

type notificationPageToken struct {
	CreatedAt time.Time
	ID        string
}

func encodeNotificationPageToken(token notificationPageToken) (string, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(token); err != nil {
		return "", fmt.Errorf("encode notification page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes.TrimSpace(buf.Bytes())), nil
}

func decodeNotificationPageToken(encoded string) (*notificationPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode notification page token: %w", err)
	}
	var token notificationPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode notification page token json: %w", err)
	}
	return &token, nil
}

var _ repositories.NotificationRepository = (*NotificationRepository)(nil)
