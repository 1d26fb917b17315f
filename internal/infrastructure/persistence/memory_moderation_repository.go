package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/repository"
	"github.com/modsentry/modsentry/pkg/errors"
)

// MemoryModerationRepository is the in-memory moderation store used for
// development and tests. Transact keeps a snapshot and restores it when fn
// fails, matching the rollback semantics of the GORM implementation.
type MemoryModerationRepository struct {
	mu       sync.RWMutex
	nextID   uint
	nextRes  uint
	requests map[uint]*entity.ModerationRequest
	order    []uint // insertion order; list reads walk it in reverse
	results  []*entity.ModerationResult
	attempts []*entity.NotificationAttempt
}

// NewMemoryModerationRepository creates an empty in-memory store.
func NewMemoryModerationRepository() *MemoryModerationRepository {
	return &MemoryModerationRepository{
		requests: make(map[uint]*entity.ModerationRequest),
	}
}

var _ repository.ModerationRepository = (*MemoryModerationRepository)(nil)

func (r *MemoryModerationRepository) CreateRequest(ctx context.Context, req *entity.ModerationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createRequestLocked(req)
}

func (r *MemoryModerationRepository) createRequestLocked(req *entity.ModerationRequest) error {
	r.nextID++
	req.ID = r.nextID
	req.Status = entity.StatusPending
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	stored := *req
	r.requests[req.ID] = &stored
	r.order = append(r.order, req.ID)
	return nil
}

func (r *MemoryModerationRepository) CreateResult(ctx context.Context, result *entity.ModerationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createResultLocked(result)
}

func (r *MemoryModerationRepository) createResultLocked(result *entity.ModerationResult) error {
	if _, ok := r.requests[result.RequestID]; !ok {
		return errors.NewNotFoundError("moderation request not found")
	}
	r.nextRes++
	result.ID = r.nextRes
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	stored := *result
	r.results = append(r.results, &stored)
	return nil
}

func (r *MemoryModerationRepository) SetStatus(ctx context.Context, requestID uint, status entity.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setStatusLocked(requestID, status)
}

func (r *MemoryModerationRepository) setStatusLocked(requestID uint, status entity.RequestStatus) error {
	req, ok := r.requests[requestID]
	if !ok {
		return errors.NewNotFoundError("moderation request not found")
	}
	if req.Status.Terminal() {
		return errors.NewInvalidInputError("moderation request status is already terminal")
	}
	req.Status = status
	return nil
}

func (r *MemoryModerationRepository) AppendNotification(ctx context.Context, attempt *entity.NotificationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	stored := *attempt
	r.attempts = append(r.attempts, &stored)
	return nil
}

func (r *MemoryModerationRepository) GetRequest(ctx context.Context, id uint) (*entity.ModerationRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, errors.NewNotFoundError("moderation request not found")
	}
	copied := *req
	return &copied, nil
}

func (r *MemoryModerationRepository) GetResult(ctx context.Context, requestID uint) (*entity.ModerationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.results {
		if res.RequestID == requestID {
			copied := *res
			return &copied, nil
		}
	}
	return nil, errors.NewNotFoundError("moderation result not found")
}

func (r *MemoryModerationRepository) ListRequests(ctx context.Context, filter repository.ListFilter, skip, limit int) (int64, []*entity.ModerationRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Newest first: reverse insertion order.
	matched := make([]*entity.ModerationRequest, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		req := r.requests[r.order[i]]
		if filter.ContentType != "" && req.ContentType != filter.ContentType {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		matched = append(matched, req)
	}

	total := int64(len(matched))
	if skip >= len(matched) {
		return total, nil, nil
	}
	end := skip + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}

	page := make([]*entity.ModerationRequest, 0, end-skip)
	for _, req := range matched[skip:end] {
		copied := *req
		page = append(page, &copied)
	}
	return total, page, nil
}

func (r *MemoryModerationRepository) ListBySubmitter(ctx context.Context, submitter string) ([]*entity.ModerationRequest, map[uint]*entity.ModerationResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var requests []*entity.ModerationRequest
	ids := make(map[uint]bool)
	for _, id := range r.order {
		req := r.requests[id]
		if req.Submitter != submitter {
			continue
		}
		copied := *req
		requests = append(requests, &copied)
		ids[id] = true
	}
	if len(requests) == 0 {
		return nil, nil, nil
	}

	results := make(map[uint]*entity.ModerationResult)
	for _, res := range r.results {
		if !ids[res.RequestID] {
			continue
		}
		if _, ok := results[res.RequestID]; !ok {
			copied := *res
			results[res.RequestID] = &copied
		}
	}
	return requests, results, nil
}

func (r *MemoryModerationRepository) ListNotifications(ctx context.Context, requestID uint) ([]*entity.NotificationAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var attempts []*entity.NotificationAttempt
	for _, att := range r.attempts {
		if att.RequestID == requestID {
			copied := *att
			attempts = append(attempts, &copied)
		}
	}
	return attempts, nil
}

// Transact snapshots the store, runs fn against an unlocked view, and
// restores the snapshot when fn returns an error.
func (r *MemoryModerationRepository) Transact(ctx context.Context, fn func(repository.ModerationRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshotLocked()
	if err := fn(&memoryTxView{repo: r}); err != nil {
		r.restoreLocked(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	nextID   uint
	nextRes  uint
	requests map[uint]*entity.ModerationRequest
	order    []uint
	results  []*entity.ModerationResult
	attempts []*entity.NotificationAttempt
}

func (r *MemoryModerationRepository) snapshotLocked() *memorySnapshot {
	snap := &memorySnapshot{
		nextID:   r.nextID,
		nextRes:  r.nextRes,
		requests: make(map[uint]*entity.ModerationRequest, len(r.requests)),
		order:    append([]uint(nil), r.order...),
		results:  make([]*entity.ModerationResult, 0, len(r.results)),
		attempts: append([]*entity.NotificationAttempt(nil), r.attempts...),
	}
	for id, req := range r.requests {
		copied := *req
		snap.requests[id] = &copied
	}
	for _, res := range r.results {
		copied := *res
		snap.results = append(snap.results, &copied)
	}
	return snap
}

func (r *MemoryModerationRepository) restoreLocked(snap *memorySnapshot) {
	r.nextID = snap.nextID
	r.nextRes = snap.nextRes
	r.requests = snap.requests
	r.order = snap.order
	r.results = snap.results
	r.attempts = snap.attempts
}

// memoryTxView forwards writes to the already-locked store. Only the
// operations the pipeline uses inside a transaction are supported; the
// rest answer through the parent lock and would deadlock, so they are
// deliberately routed to the locked internals.
type memoryTxView struct {
	repo *MemoryModerationRepository
}

var _ repository.ModerationRepository = (*memoryTxView)(nil)

func (v *memoryTxView) CreateRequest(ctx context.Context, req *entity.ModerationRequest) error {
	return v.repo.createRequestLocked(req)
}

func (v *memoryTxView) CreateResult(ctx context.Context, result *entity.ModerationResult) error {
	return v.repo.createResultLocked(result)
}

func (v *memoryTxView) SetStatus(ctx context.Context, requestID uint, status entity.RequestStatus) error {
	return v.repo.setStatusLocked(requestID, status)
}

func (v *memoryTxView) AppendNotification(ctx context.Context, attempt *entity.NotificationAttempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	stored := *attempt
	v.repo.attempts = append(v.repo.attempts, &stored)
	return nil
}

func (v *memoryTxView) GetRequest(ctx context.Context, id uint) (*entity.ModerationRequest, error) {
	req, ok := v.repo.requests[id]
	if !ok {
		return nil, errors.NewNotFoundError("moderation request not found")
	}
	copied := *req
	return &copied, nil
}

func (v *memoryTxView) GetResult(ctx context.Context, requestID uint) (*entity.ModerationResult, error) {
	for _, res := range v.repo.results {
		if res.RequestID == requestID {
			copied := *res
			return &copied, nil
		}
	}
	return nil, errors.NewNotFoundError("moderation result not found")
}

func (v *memoryTxView) ListRequests(ctx context.Context, filter repository.ListFilter, skip, limit int) (int64, []*entity.ModerationRequest, error) {
	return 0, nil, errors.NewInternalError("ListRequests not supported inside a transaction")
}

func (v *memoryTxView) ListBySubmitter(ctx context.Context, submitter string) ([]*entity.ModerationRequest, map[uint]*entity.ModerationResult, error) {
	return nil, nil, errors.NewInternalError("ListBySubmitter not supported inside a transaction")
}

func (v *memoryTxView) ListNotifications(ctx context.Context, requestID uint) ([]*entity.NotificationAttempt, error) {
	return nil, errors.NewInternalError("ListNotifications not supported inside a transaction")
}

func (v *memoryTxView) Transact(ctx context.Context, fn func(repository.ModerationRepository) error) error {
	return fn(v)
}
