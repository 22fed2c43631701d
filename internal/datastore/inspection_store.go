package datastore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safetrack/safetrack/internal/datastore/entities"
	"github.com/safetrack/safetrack/internal/errors"
	"github.com/safetrack/safetrack/internal/inspection"
	"github.com/safetrack/safetrack/internal/observability/metrics"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	tableInspections = "inspections"
	tableItems       = "inspection_items"
	tableResponses   = "item_responses"
)

var (
	_ inspection.Store            = (*InspectionStore)(nil)
	_ inspection.ProgressRecorder = (*InspectionStore)(nil)
)

// InspectionStore implements inspection.Store on GORM.
type InspectionStore struct {
	db      *gorm.DB
	metrics *Metrics
	now     func() time.Time
}

// NewInspectionStore creates a store on the manager's connection.
func NewInspectionStore(m *Manager) *InspectionStore {
	return &InspectionStore{
		db:      m.db,
		metrics: m.metrics,
		now:     m.db.NowFunc,
	}
}

// GetInspection loads one inspection.
func (s *InspectionStore) GetInspection(ctx context.Context, inspectionID string) (result *inspection.Inspection, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, metrics.OpDbQuery, tableInspections, start, err) }()

	var row entities.Inspection
	if err = s.db.WithContext(ctx).Where("id = ?", inspectionID).Take(&row).Error; err != nil {
		err = lookupError(err, "get_inspection", "inspection", inspectionID)
		return nil, err
	}
	insp := toInspection(&row)
	return &insp, nil
}

// GetItems returns the checklist ordered by order_index.
func (s *InspectionStore) GetItems(ctx context.Context, inspectionID string) (items []inspection.InspectionItem, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, metrics.OpDbQuery, tableItems, start, err) }()

	var rows []entities.InspectionItem
	err = s.db.WithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("order_index ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		err = dbError(err, "get_items", errors.PriorityMedium, "inspection_id", inspectionID)
		return nil, err
	}

	items = make([]inspection.InspectionItem, 0, len(rows))
	for i := range rows {
		items = append(items, toItem(&rows[i]))
	}
	return items, nil
}

// GetResponses returns every response of the inspection.
func (s *InspectionStore) GetResponses(ctx context.Context, inspectionID string) (responses []inspection.ItemResponse, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, metrics.OpDbQuery, tableResponses, start, err) }()

	var rows []entities.ItemResponse
	if err = s.db.WithContext(ctx).Where("inspection_id = ?", inspectionID).Find(&rows).Error; err != nil {
		err = dbError(err, "get_responses", errors.PriorityMedium, "inspection_id", inspectionID)
		return nil, err
	}

	responses = make([]inspection.ItemResponse, 0, len(rows))
	for i := range rows {
		responses = append(responses, toResponse(&rows[i]))
	}
	return responses, nil
}

// UpsertResponse inserts the response or replaces the one stored for the same
// (inspection_id, inspection_item_id). The stored id and created_at survive a
// replace.
func (s *InspectionStore) UpsertResponse(ctx context.Context, response *inspection.ItemResponse) (stored *inspection.ItemResponse, err error) {
	start := time.Now()
	defer func() {
		observe(s.metrics, metrics.OpDbUpsert, tableResponses, start, err)
		observeTransaction(s.metrics, "upsert_response", start, err)
	}()

	row := fromResponse(response)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := s.now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	var saved entities.ItemResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "inspection_id"}, {Name: "inspection_item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user_id", "state", "comment", "photos", "updated_at",
			}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("inspection_id = ? AND inspection_item_id = ?", row.InspectionID, row.InspectionItemID).
			Take(&saved).Error
	})
	if err != nil {
		err = dbError(err, "upsert_response", errors.PriorityMedium,
			"inspection_id", row.InspectionID, "item_id", row.InspectionItemID)
		return nil, err
	}

	out := toResponse(&saved)
	return &out, nil
}

// UpdateInspection writes every set field of update in one statement.
func (s *InspectionStore) UpdateInspection(ctx context.Context, inspectionID string, update inspection.InspectionUpdate) (err error) {
	if update.Empty() {
		return nil
	}
	start := time.Now()
	defer func() { observe(s.metrics, metrics.OpDbUpdate, tableInspections, start, err) }()

	columns := updateColumns(update)
	columns["updated_at"] = s.now()

	result := s.db.WithContext(ctx).
		Model(&entities.Inspection{}).
		Where("id = ?", inspectionID).
		Updates(columns)
	if result.Error != nil {
		err = dbError(result.Error, "update_inspection", errors.PriorityMedium, "inspection_id", inspectionID)
		return err
	}
	if result.RowsAffected == 0 {
		err = notFound("inspection", inspectionID)
		return err
	}
	return nil
}

// SetPercentComplete caches the derived progress on the inspection row.
func (s *InspectionStore) SetPercentComplete(ctx context.Context, inspectionID string, percent float64) (err error) {
	start := time.Now()
	defer func() { observe(s.metrics, metrics.OpDbUpdate, tableInspections, start, err) }()

	result := s.db.WithContext(ctx).
		Model(&entities.Inspection{}).
		Where("id = ?", inspectionID).
		Updates(map[string]any{"percent_complete": percent, "updated_at": s.now()})
	if result.Error != nil {
		err = dbError(result.Error, "set_percent_complete", errors.PriorityLow, "inspection_id", inspectionID)
		return err
	}
	if result.RowsAffected == 0 {
		err = notFound("inspection", inspectionID)
		return err
	}
	return nil
}

func updateColumns(u inspection.InspectionUpdate) map[string]any {
	columns := make(map[string]any, 5)
	if v := u.Status.Value(); u.Status.IsSet() && v != nil {
		columns["status"] = string(*v)
	}
	setColumn(columns, "started_at", u.StartedAt)
	setColumn(columns, "finished_at", u.FinishedAt)
	setColumn(columns, "force_close_reason", u.ForceCloseReason)
	setColumn(columns, "notes", u.Notes)
	return columns
}

// setColumn adds a set change to columns; a cleared change writes NULL.
func setColumn[T any](columns map[string]any, name string, c inspection.Change[T]) {
	if !c.IsSet() {
		return
	}
	if v := c.Value(); v != nil {
		columns[name] = *v
		return
	}
	columns[name] = nil
}

func toInspection(row *entities.Inspection) inspection.Inspection {
	return inspection.Inspection{
		ID:               row.ID,
		AreaID:           row.AreaID,
		Status:           inspection.Status(row.Status),
		PercentComplete:  row.PercentComplete,
		StartedAt:        row.StartedAt,
		FinishedAt:       row.FinishedAt,
		ForceCloseReason: row.ForceCloseReason,
		Notes:            row.Notes,
	}
}

func toItem(row *entities.InspectionItem) inspection.InspectionItem {
	return inspection.InspectionItem{
		ID:           row.ID,
		InspectionID: row.InspectionID,
		Label:        row.Label,
		Description:  row.Description,
		OrderIndex:   row.OrderIndex,
		Required:     row.Required,
	}
}

func toResponse(row *entities.ItemResponse) inspection.ItemResponse {
	photos := []string(row.Photos)
	if photos == nil {
		photos = []string{}
	}
	return inspection.ItemResponse{
		ID:               row.ID,
		InspectionItemID: row.InspectionItemID,
		InspectionID:     row.InspectionID,
		UserID:           row.UserID,
		State:            inspection.ResponseState(row.State),
		Comment:          row.Comment,
		Photos:           photos,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func fromResponse(r *inspection.ItemResponse) entities.ItemResponse {
	photos := datatypes.JSONSlice[string](r.Photos)
	if photos == nil {
		photos = datatypes.JSONSlice[string]{}
	}
	return entities.ItemResponse{
		ID:               r.ID,
		InspectionID:     r.InspectionID,
		InspectionItemID: r.InspectionItemID,
		UserID:           r.UserID,
		State:            string(r.State),
		Comment:          r.Comment,
		Photos:           photos,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
