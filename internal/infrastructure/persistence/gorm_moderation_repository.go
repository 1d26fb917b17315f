package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/modsentry/modsentry/internal/domain/entity"
	"github.com/modsentry/modsentry/internal/domain/repository"
	"github.com/modsentry/modsentry/internal/infrastructure/persistence/models"
	domainErrors "github.com/modsentry/modsentry/pkg/errors"
)

// GormModerationRepository is the GORM-backed moderation store.
type GormModerationRepository struct {
	db *gorm.DB
}

// NewGormModerationRepository creates the GORM moderation repository.
func NewGormModerationRepository(db *gorm.DB) repository.ModerationRepository {
	return &GormModerationRepository{db: db}
}

// CreateRequest inserts a pending request row and backfills the assigned ID
// and creation time.
func (r *GormModerationRepository) CreateRequest(ctx context.Context, req *entity.ModerationRequest) error {
	model := &models.ModerationRequestModel{
		ContentType: string(req.ContentType),
		ContentHash: req.ContentHash,
		Submitter:   req.Submitter,
		Status:      string(entity.StatusPending),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to create moderation request: " + err.Error())
	}
	req.ID = model.ID
	req.Status = entity.StatusPending
	req.CreatedAt = model.CreatedAt
	return nil
}

// CreateResult inserts the verdict row for a request.
func (r *GormModerationRepository) CreateResult(ctx context.Context, result *entity.ModerationResult) error {
	model := &models.ModerationResultModel{
		RequestID:      result.RequestID,
		Classification: result.Classification,
		Confidence:     result.Confidence,
		Reasoning:      result.Reasoning,
		RawPayload:     result.RawPayload,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to create moderation result: " + err.Error())
	}
	result.ID = model.ID
	result.CreatedAt = model.CreatedAt
	return nil
}

// SetStatus transitions a request's status. Terminal statuses never revert:
// the update is guarded on the current row still being pending.
func (r *GormModerationRepository) SetStatus(ctx context.Context, requestID uint, status entity.RequestStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.ModerationRequestModel{}).
		Where("id = ? AND status = ?", requestID, string(entity.StatusPending)).
		Update("status", string(status))
	if res.Error != nil {
		return domainErrors.NewInternalError("failed to update request status: " + res.Error.Error())
	}
	if res.RowsAffected == 0 {
		var model models.ModerationRequestModel
		if err := r.db.WithContext(ctx).First(&model, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.NewNotFoundError("moderation request not found")
			}
			return domainErrors.NewInternalError("failed to find moderation request: " + err.Error())
		}
		return domainErrors.NewInvalidInputError("moderation request status is already terminal")
	}
	return nil
}

// AppendNotification writes one delivery attempt.
func (r *GormModerationRepository) AppendNotification(ctx context.Context, attempt *entity.NotificationAttempt) error {
	model := &models.NotificationAttemptModel{
		ID:        attempt.ID,
		RequestID: attempt.RequestID,
		Channel:   attempt.Channel,
		Outcome:   string(attempt.Outcome),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return domainErrors.NewInternalError("failed to append notification attempt: " + err.Error())
	}
	attempt.CreatedAt = model.CreatedAt
	return nil
}

// GetRequest fetches one request by ID.
func (r *GormModerationRepository) GetRequest(ctx context.Context, id uint) (*entity.ModerationRequest, error) {
	var model models.ModerationRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("moderation request not found")
		}
		return nil, domainErrors.NewInternalError("failed to find moderation request: " + err.Error())
	}
	return requestToEntity(&model), nil
}

// GetResult fetches the verdict for a request.
func (r *GormModerationRepository) GetResult(ctx context.Context, requestID uint) (*entity.ModerationResult, error) {
	var model models.ModerationResultModel
	if err := r.db.WithContext(ctx).First(&model, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("moderation result not found")
		}
		return nil, domainErrors.NewInternalError("failed to find moderation result: " + err.Error())
	}
	return resultToEntity(&model), nil
}

// ListRequests returns the total match count and a page ordered by
// created_at descending.
func (r *GormModerationRepository) ListRequests(ctx context.Context, filter repository.ListFilter, skip, limit int) (int64, []*entity.ModerationRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.ModerationRequestModel{})
	if filter.ContentType != "" {
		query = query.Where("content_type = ?", string(filter.ContentType))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, nil, domainErrors.NewInternalError("failed to count moderation requests: " + err.Error())
	}

	var rows []models.ModerationRequestModel
	err := query.
		Order("created_at desc").
		Offset(skip).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return 0, nil, domainErrors.NewInternalError("failed to list moderation requests: " + err.Error())
	}

	requests := make([]*entity.ModerationRequest, 0, len(rows))
	for i := range rows {
		requests = append(requests, requestToEntity(&rows[i]))
	}
	return total, requests, nil
}

// ListBySubmitter returns every request from one submitter plus any results
// keyed by request ID.
func (r *GormModerationRepository) ListBySubmitter(ctx context.Context, submitter string) ([]*entity.ModerationRequest, map[uint]*entity.ModerationResult, error) {
	var reqRows []models.ModerationRequestModel
	err := r.db.WithContext(ctx).
		Where("submitter = ?", submitter).
		Order("created_at asc").
		Find(&reqRows).Error
	if err != nil {
		return nil, nil, domainErrors.NewInternalError("failed to list requests by submitter: " + err.Error())
	}
	if len(reqRows) == 0 {
		return nil, nil, nil
	}

	ids := make([]uint, 0, len(reqRows))
	requests := make([]*entity.ModerationRequest, 0, len(reqRows))
	for i := range reqRows {
		ids = append(ids, reqRows[i].ID)
		requests = append(requests, requestToEntity(&reqRows[i]))
	}

	var resRows []models.ModerationResultModel
	if err := r.db.WithContext(ctx).Where("request_id IN ?", ids).Find(&resRows).Error; err != nil {
		return nil, nil, domainErrors.NewInternalError("failed to list results by submitter: " + err.Error())
	}

	results := make(map[uint]*entity.ModerationResult, len(resRows))
	for i := range resRows {
		// First result wins; extra rows from backend retries are ignored
		// on the read side.
		if _, ok := results[resRows[i].RequestID]; !ok {
			results[resRows[i].RequestID] = resultToEntity(&resRows[i])
		}
	}
	return requests, results, nil
}

// ListNotifications returns the attempts recorded for a request.
func (r *GormModerationRepository) ListNotifications(ctx context.Context, requestID uint) ([]*entity.NotificationAttempt, error) {
	var rows []models.NotificationAttemptModel
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewInternalError("failed to list notification attempts: " + err.Error())
	}

	attempts := make([]*entity.NotificationAttempt, 0, len(rows))
	for i := range rows {
		attempts = append(attempts, &entity.NotificationAttempt{
			ID:        rows[i].ID,
			RequestID: rows[i].RequestID,
			Channel:   rows[i].Channel,
			Outcome:   entity.NotificationOutcome(rows[i].Outcome),
			CreatedAt: rows[i].CreatedAt,
		})
	}
	return attempts, nil
}

// Transact runs fn inside one database transaction.
func (r *GormModerationRepository) Transact(ctx context.Context, fn func(repository.ModerationRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormModerationRepository{db: tx})
	})
}

func requestToEntity(model *models.ModerationRequestModel) *entity.ModerationRequest {
	return &entity.ModerationRequest{
		ID:          model.ID,
		ContentType: entity.ContentType(model.ContentType),
		ContentHash: model.ContentHash,
		Submitter:   model.Submitter,
		Status:      entity.RequestStatus(model.Status),
		CreatedAt:   model.CreatedAt,
	}
}

func resultToEntity(model *models.ModerationResultModel) *entity.ModerationResult {
	return &entity.ModerationResult{
		ID:             model.ID,
		RequestID:      model.RequestID,
		Classification: model.Classification,
		Confidence:     model.Confidence,
		Reasoning:      model.Reasoning,
		RawPayload:     model.RawPayload,
		CreatedAt:      model.CreatedAt,
	}
}
