package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/balamernstackdev/thulasi-textiles-sub000/internal/domain"
	"github.com/balamernstackdev/thulasi-textiles-sub000/internal/repositories"
)

const notificationIDPrefix = "ntf_"

var (
	// ErrNotificationInvalidInput signals the caller provided invalid data.
	ErrNotificationInvalidInput = errors.New("notification: invalid input")
	// ErrNotificationNotFound indicates the notification could not be located.
	ErrNotificationNotFound = errors.New("notification: not found")
)

// NotificationServiceDeps bundles collaborators for the notification service.
type NotificationServiceDeps struct {
	Notifications repositories.NotificationRepository
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type notificationService struct {
	repo   repositories.NotificationRepository
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewNotificationService wires dependencies into a concrete NotificationService implementation.
func NewNotificationService(deps NotificationServiceDeps) (NotificationService, error) {
	if deps.Notifications == nil {
		return nil, errors.New("notification service: notification repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &notificationService{
		repo: deps.Notifications,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *notificationService) Push(ctx context.Context, cmd PushNotificationCommand) (Notification, error) {
	if !cmd.ForAdmins && strings.TrimSpace(cmd.UserID) == "" {
		return Notification{}, fmt.Errorf("%w: user id or admin audience is required", ErrNotificationInvalidInput)
	}
	if strings.TrimSpace(cmd.Title) == "" {
		return Notification{}, fmt.Errorf("%w: title is required", ErrNotificationInvalidInput)
	}

	kind := cmd.Type
	if kind == "" {
		kind = domain.NotificationTypeOrder
	}

	notification := Notification{
		ID:        notificationIDPrefix + s.newID(),
		UserID:    strings.TrimSpace(cmd.UserID),
		ForAdmins: cmd.ForAdmins,
		Title:     strings.TrimSpace(cmd.Title),
		Message:   strings.TrimSpace(cmd.Message),
		Type:      kind,
		Link:      strings.TrimSpace(cmd.Link),
		CreatedAt: s.clock(),
	}

	if err := s.repo.Insert(ctx, notification); err != nil {
		return Notification{}, s.mapRepositoryError(err)
	}

	return notification, nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID string, pager Pagination) (domain.CursorPage[Notification], error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.CursorPage[Notification]{}, fmt.Errorf("%w: user id is required", ErrNotificationInvalidInput)
	}

	page, err := s.repo.ListForUser(ctx, userID, pager)
	if err != nil {
		return domain.CursorPage[Notification]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *notificationService) ListForAdmins(ctx context.Context, pager Pagination) (domain.CursorPage[Notification], error) {
	page, err := s.repo.ListForAdmins(ctx, pager)
	if err != nil {
		return domain.CursorPage[Notification]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID string, notificationID string) error {
	userID = strings.TrimSpace(userID)
	notificationID = strings.TrimSpace(notificationID)
	if userID == "" || notificationID == "" {
		return fmt.Errorf("%w: user id and notification id are required", ErrNotificationInvalidInput)
	}

	if err := s.repo.MarkRead(ctx, userID, notificationID, s.clock()); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *notificationService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrNotificationNotFound, err)
	}

	return err
}
