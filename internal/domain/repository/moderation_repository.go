package repository

import (
	"context"

	"github.com/modsentry/modsentry/internal/domain/entity"
)

// ListFilter narrows ListRequests. Zero values mean "no filter".
type ListFilter struct {
	ContentType entity.ContentType
	Status      entity.RequestStatus
}

// ModerationRepository is the durable store for requests, results and
// notification attempts. All writes of a single call are durable when the
// call returns. Multi-write atomicity is obtained through Transact; callers
// must not hold a transaction open across an analyzer invocation.
type ModerationRepository interface {
	// CreateRequest inserts a request with status pending and assigns its ID.
	CreateRequest(ctx context.Context, req *entity.ModerationRequest) error

	// CreateResult inserts the analyzer verdict for a request.
	CreateResult(ctx context.Context, result *entity.ModerationResult) error

	// SetStatus transitions a request's status.
	SetStatus(ctx context.Context, requestID uint, status entity.RequestStatus) error

	// AppendNotification appends one delivery attempt. Never updates.
	AppendNotification(ctx context.Context, attempt *entity.NotificationAttempt) error

	// GetRequest fetches a request by ID.
	GetRequest(ctx context.Context, id uint) (*entity.ModerationRequest, error)

	// GetResult fetches the result for a request, if one exists.
	GetResult(ctx context.Context, requestID uint) (*entity.ModerationResult, error)

	// ListRequests returns the total match count and one page of requests
	// ordered by creation time descending.
	ListRequests(ctx context.Context, filter ListFilter, skip, limit int) (int64, []*entity.ModerationRequest, error)

	// ListBySubmitter returns every request submitted by one identity,
	// with any results keyed by request ID (analytics read side).
	ListBySubmitter(ctx context.Context, submitter string) ([]*entity.ModerationRequest, map[uint]*entity.ModerationResult, error)

	// ListNotifications returns the attempts recorded for a request.
	ListNotifications(ctx context.Context, requestID uint) ([]*entity.NotificationAttempt, error)

	// Transact runs fn against a repository view whose writes commit
	// together or not at all.
	Transact(ctx context.Context, fn func(ModerationRepository) error) error
}
