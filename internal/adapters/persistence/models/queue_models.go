package models

import (
	"time"

	"clinicdesk/internal/core/domain"
)

// ============================================================
// Daily Visit Queue
// ============================================================

// Queue states
const (
	QueueStatusOpen   = "OPEN"
	QueueStatusActive = "ACTIVE"
	QueueStatusClosed = "CLOSED"
)

// Queue entry states
const (
	EntryStatusWaiting = "WAITING"
	EntryStatusServed  = "SERVED"
)

// Queue is one clinic's visit queue for one clinic-local day.
// OpenClinicID mirrors ClinicID until the queue closes; its unique index
// keeps a single non-closed queue per clinic.
type Queue struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ClinicID     uint       `gorm:"not null;index" json:"clinic_id"`
	OpenClinicID *uint      `gorm:"uniqueIndex" json:"-"`
	QueueDate    string     `gorm:"size:10;not null;index" json:"queue_date"`
	Status       string     `gorm:"size:10;not null;default:'OPEN'" json:"status"`
	LastPosition int        `gorm:"not null;default:0" json:"last_position"`
	CreatedBy    uint       `gorm:"not null" json:"created_by"`
	ClosedAt     *time.Time `json:"closed_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Clinic       Clinic     `gorm:"foreignKey:ClinicID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Queue) TableName() string {
	return "queues"
}

// NewQueue returns an empty OPEN queue
func NewQueue(clinicID, createdBy uint, date string) *Queue {
	open := clinicID
	return &Queue{
		ClinicID:     clinicID,
		OpenClinicID: &open,
		QueueDate:    date,
		Status:       QueueStatusOpen,
		CreatedBy:    createdBy,
	}
}

func (q *Queue) IsClosed() bool {
	return q.Status == QueueStatusClosed
}

// Admit reserves the next tail position. The first admission moves OPEN to ACTIVE.
func (q *Queue) Admit() (int, error) {
	if q.IsClosed() {
		return 0, domain.ErrNoOpenQueue
	}
	q.LastPosition++
	if q.Status == QueueStatusOpen {
		q.Status = QueueStatusActive
	}
	return q.LastPosition, nil
}

// Close is terminal. Waiting entries are left untouched.
func (q *Queue) Close(now time.Time) error {
	if q.IsClosed() {
		return domain.ErrNoOpenQueue
	}
	q.Status = QueueStatusClosed
	q.OpenClinicID = nil
	q.ClosedAt = &now
	return nil
}

// IsStale reports whether the queue belongs to a day before today
func (q *Queue) IsStale(today string) bool {
	return !q.IsClosed() && q.QueueDate < today
}

// QueueEntry is one patient's place in a queue
type QueueEntry struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	QueueID   uint       `gorm:"not null;uniqueIndex:idx_queue_position" json:"queue_id"`
	Position  int        `gorm:"not null;uniqueIndex:idx_queue_position" json:"position"`
	PatientID uint       `gorm:"not null;index" json:"patient_id"`
	Status    string     `gorm:"size:10;not null;default:'WAITING'" json:"status"`
	AddedBy   uint       `gorm:"not null" json:"added_by"`
	AddedAt   time.Time  `gorm:"not null" json:"added_at"`
	ServedAt  *time.Time `json:"served_at"`
	Queue     Queue      `gorm:"foreignKey:QueueID;constraint:OnDelete:CASCADE" json:"-"`
	Patient   Patient    `gorm:"foreignKey:PatientID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (QueueEntry) TableName() string {
	return "queue_entries"
}

func (e *QueueEntry) IsWaiting() bool {
	return e.Status == EntryStatusWaiting
}

// Serve marks a waiting entry as served
func (e *QueueEntry) Serve(now time.Time) error {
	if !e.IsWaiting() {
		return domain.Validationf("queue entry %d is not waiting", e.ID)
	}
	e.Status = EntryStatusServed
	e.ServedAt = &now
	return nil
}

// QueueEntryView is a queue entry joined with its patient's name
type QueueEntryView struct {
	EntryID     uint   `json:"entry_id"`
	PatientID   uint   `json:"patient_id"`
	PatientName string `json:"patient_name"`
	Position    int    `json:"position"`
	Status      string `json:"status"`
}
