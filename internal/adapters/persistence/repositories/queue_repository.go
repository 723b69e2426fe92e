package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// queueRepository implements QueueRepository. Every mutation locks the
// clinic's open queue row first, so position assignment is serialized.
type queueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates a new queue repository
func NewQueueRepository(db *gorm.DB) QueueRepository {
	return &queueRepository{db: db}
}

// lockOpen selects the scope's non-closed queue FOR UPDATE
func lockOpen(tx *gorm.DB, scope domain.ClinicScope) (*models.Queue, error) {
	var queue models.Queue
	err := forUpdate(tx).Where("open_clinic_id = ?", scope.ClinicID()).First(&queue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoOpenQueue
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &queue, nil
}

// Create inserts a new OPEN queue unless one is already open
func (r *queueRepository) Create(ctx context.Context, scope domain.ClinicScope, queue *models.Queue) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Queue{}).Where("open_clinic_id = ?", scope.ClinicID()).Count(&count).Error
		if err != nil {
			return translateError(err)
		}
		if count > 0 {
			return domain.ErrQueueAlreadyOpen
		}
		open := scope.ClinicID()
		queue.ID = 0
		queue.ClinicID = scope.ClinicID()
		queue.OpenClinicID = &open
		return translateError(tx.Omit(clause.Associations).Create(queue).Error)
	})
	// two creators racing past the count hit the unique index instead
	if errors.Is(err, domain.ErrDuplicateEntry) {
		return domain.ErrQueueAlreadyOpen
	}
	return err
}

// GetOpen returns the scope's OPEN or ACTIVE queue
func (r *queueRepository) GetOpen(ctx context.Context, scope domain.ClinicScope) (*models.Queue, error) {
	var queue models.Queue
	err := r.db.WithContext(ctx).Where("open_clinic_id = ?", scope.ClinicID()).First(&queue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNoOpenQueue
	}
	if err != nil {
		return nil, translateError(err)
	}
	return &queue, nil
}

// Append adds a waiting entry at the tail of the open queue
func (r *queueRepository) Append(ctx context.Context, scope domain.ClinicScope, patientID uint, now time.Time) (*models.Queue, *models.QueueEntry, error) {
	var queue *models.Queue
	var entry *models.QueueEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		queue, err = lockOpen(tx, scope)
		if err != nil {
			return err
		}
		if err := requireOwned(tx, scope, "patients", "patient", patientID); err != nil {
			return err
		}

		waiting, err := countRefs(tx, &models.QueueEntry{},
			"queue_id = ? AND patient_id = ? AND status = ?", queue.ID, patientID, models.EntryStatusWaiting)
		if err != nil {
			return err
		}
		if waiting > 0 {
			return domain.Validationf("patient %d is already waiting in the queue", patientID)
		}

		position, err := queue.Admit()
		if err != nil {
			return err
		}
		err = tx.Model(queue).Updates(map[string]interface{}{
			"last_position": queue.LastPosition,
			"status":        queue.Status,
		}).Error
		if err != nil {
			return translateError(err)
		}

		entry = &models.QueueEntry{
			QueueID:   queue.ID,
			Position:  position,
			PatientID: patientID,
			Status:    models.EntryStatusWaiting,
			AddedBy:   scope.UserID(),
			AddedAt:   now,
		}
		return translateError(tx.Omit(clause.Associations).Create(entry).Error)
	})
	if err != nil {
		return nil, nil, err
	}
	return queue, entry, nil
}

// Advance serves the head of the queue
func (r *queueRepository) Advance(ctx context.Context, scope domain.ClinicScope, now time.Time) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		queue, err := lockOpen(tx, scope)
		if err != nil {
			return err
		}
		err = tx.Where("queue_id = ? AND status = ?", queue.ID, models.EntryStatusWaiting).
			Order("position ASC").
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundf("waiting patient")
		}
		if err != nil {
			return translateError(err)
		}
		return r.serve(tx, &entry, now)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Remove serves a specific entry of the open queue
func (r *queueRepository) Remove(ctx context.Context, scope domain.ClinicScope, entryID uint, now time.Time) (*models.QueueEntry, error) {
	var entry models.QueueEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		queue, err := lockOpen(tx, scope)
		if err != nil {
			return err
		}
		err = tx.Where("id = ? AND queue_id = ?", entryID, queue.ID).First(&entry).Error
		if err != nil {
			return translateError(err)
		}
		return r.serve(tx, &entry, now)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *queueRepository) serve(tx *gorm.DB, entry *models.QueueEntry, now time.Time) error {
	if err := entry.Serve(now); err != nil {
		return err
	}
	return translateError(tx.Model(entry).Updates(map[string]interface{}{
		"status":    entry.Status,
		"served_at": entry.ServedAt,
	}).Error)
}

// Close moves the open queue to CLOSED. Waiting entries stay as history.
func (r *queueRepository) Close(ctx context.Context, scope domain.ClinicScope, now time.Time) (*models.Queue, error) {
	var queue *models.Queue
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		queue, err = lockOpen(tx, scope)
		if err != nil {
			return err
		}
		if err := queue.Close(now); err != nil {
			return err
		}
		return translateError(tx.Model(queue).Updates(map[string]interface{}{
			"status":         queue.Status,
			"open_clinic_id": gorm.Expr("NULL"),
			"closed_at":      queue.ClosedAt,
		}).Error)
	})
	if err != nil {
		return nil, err
	}
	return queue, nil
}

// ListWaiting lists waiting entries in position order with patient names
func (r *queueRepository) ListWaiting(ctx context.Context, scope domain.ClinicScope, queueID uint) ([]models.QueueEntryView, error) {
	return r.listEntries(ctx, scope, queueID, models.EntryStatusWaiting)
}

// ListEntries lists every entry of a queue, waiting and served, in position order
func (r *queueRepository) ListEntries(ctx context.Context, scope domain.ClinicScope, queueID uint) ([]models.QueueEntryView, error) {
	return r.listEntries(ctx, scope, queueID, "")
}

func (r *queueRepository) listEntries(ctx context.Context, scope domain.ClinicScope, queueID uint, status string) ([]models.QueueEntryView, error) {
	var rows []struct {
		ID        uint
		PatientID uint
		Position  int
		Status    string
		FirstName string
		LastName  string
	}
	query := r.db.WithContext(ctx).
		Table("queue_entries").
		Select("queue_entries.id, queue_entries.patient_id, queue_entries.position, queue_entries.status, patients.first_name, patients.last_name").
		Joins("JOIN queues ON queues.id = queue_entries.queue_id").
		Joins("JOIN patients ON patients.id = queue_entries.patient_id").
		Where("queue_entries.queue_id = ? AND queues.clinic_id = ?", queueID, scope.ClinicID())
	if status != "" {
		query = query.Where("queue_entries.status = ?", status)
	}
	if err := query.Order("queue_entries.position ASC").Scan(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	views := make([]models.QueueEntryView, 0, len(rows))
	for _, row := range rows {
		views = append(views, models.QueueEntryView{
			EntryID:     row.ID,
			PatientID:   row.PatientID,
			PatientName: strings.TrimSpace(row.FirstName + " " + row.LastName),
			Position:    row.Position,
			Status:      row.Status,
		})
	}
	return views, nil
}

// ListByDate returns the scope's queues for one clinic-local day, oldest first.
// A day has more than one queue when it was closed and reopened.
func (r *queueRepository) ListByDate(ctx context.Context, scope domain.ClinicScope, date string) ([]*models.Queue, error) {
	var queues []*models.Queue
	err := r.db.WithContext(ctx).
		Where("clinic_id = ? AND queue_date = ?", scope.ClinicID(), date).
		Order("id ASC").
		Find(&queues).Error
	if err != nil {
		return nil, translateError(err)
	}
	return queues, nil
}

// ============================================================
// Dashboard
// ============================================================

// dashboardRepository implements DashboardRepository interface
type dashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

// Metrics counts issued prescriptions and sums their payments in one statement
func (r *dashboardRepository) Metrics(ctx context.Context, scope domain.ClinicScope) (*models.DashboardMetrics, error) {
	var metrics models.DashboardMetrics
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(DISTINCT pr.id) AS issued_count,
		       COALESCE(SUM(pay.amount), 0) AS total_payments
		FROM prescriptions pr
		JOIN patients p ON p.id = pr.patient_id
		LEFT JOIN payments pay ON pay.prescription_id = pr.id
		WHERE p.clinic_id = ? AND pr.issued = ?`,
		scope.ClinicID(), true,
	).Scan(&metrics).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &metrics, nil
}
