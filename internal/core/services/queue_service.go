package services

import (
	"context"
	"errors"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/core/domain"

	"github.com/rs/zerolog/log"
)

// QueueService runs the clinic's daily visit queue:
// OPEN -> ACTIVE (first patient added) -> CLOSED.
type QueueService struct {
	queueRepo  repositories.QueueRepository
	clinicRepo repositories.ClinicRepository
	hub        *SSEHub
	now        func() time.Time
}

// NewQueueService creates a new queue service. hub may be nil.
func NewQueueService(queueRepo repositories.QueueRepository, clinicRepo repositories.ClinicRepository, hub *SSEHub) *QueueService {
	return &QueueService{
		queueRepo:  queueRepo,
		clinicRepo: clinicRepo,
		hub:        hub,
		now:        time.Now,
	}
}

// AddToQueueInput represents add-patient input
type AddToQueueInput struct {
	PatientID uint `json:"patient_id" validate:"required"`
}

// QueueView is a queue with its entries in position order. Waiting counts
// the entries not yet served.
type QueueView struct {
	Queue   *models.Queue           `json:"queue"`
	Entries []models.QueueEntryView `json:"entries"`
	Waiting int                     `json:"waiting"`
}

// Hub returns the SSE hub queue events are published on
func (s *QueueService) Hub() *SSEHub {
	return s.hub
}

func (s *QueueService) publish(scope domain.ClinicScope, event string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToClinic(scope.ClinicID(), SSEEvent{Event: event, Data: data})
}

// ============================================================
// Transitions
// ============================================================

// CreateQueue opens today's queue. A queue left open from an earlier day is
// closed first; one already open today yields ErrQueueAlreadyOpen.
func (s *QueueService) CreateQueue(ctx context.Context, scope domain.ClinicScope) (*models.Queue, error) {
	now := s.now()
	today := scope.Today(now)

	open, err := s.queueRepo.GetOpen(ctx, scope)
	switch {
	case err == nil && open.IsStale(today):
		if _, err := s.closeOpen(ctx, scope, now); err != nil && !errors.Is(err, domain.ErrNoOpenQueue) {
			return nil, err
		}
	case err == nil:
		return nil, domain.ErrQueueAlreadyOpen
	case !errors.Is(err, domain.ErrNoOpenQueue):
		return nil, err
	}

	queue := models.NewQueue(scope.ClinicID(), scope.UserID(), today)
	if err := s.queueRepo.Create(ctx, scope, queue); err != nil {
		return nil, err
	}

	log.Info().Uint("clinic_id", scope.ClinicID()).Uint("queue_id", queue.ID).Str("date", today).Msg("queue opened")
	s.publish(scope, EventQueueCreated, queue)
	return queue, nil
}

// AddToQueue appends a patient at the tail and returns the entry with its
// 1-based position. The patient must belong to the caller's clinic.
func (s *QueueService) AddToQueue(ctx context.Context, scope domain.ClinicScope, patientID uint) (*models.QueueEntry, error) {
	if patientID == 0 {
		return nil, domain.Validationf("patient_id is required")
	}

	queue, entry, err := s.queueRepo.Append(ctx, scope, patientID, s.now())
	if err != nil {
		return nil, err
	}

	log.Info().
		Uint("clinic_id", scope.ClinicID()).
		Uint("queue_id", queue.ID).
		Uint("patient_id", patientID).
		Int("position", entry.Position).
		Msg("patient queued")
	s.publish(scope, EventEntryAdded, entry)
	return entry, nil
}

// Advance serves the patient at the head of the queue
func (s *QueueService) Advance(ctx context.Context, scope domain.ClinicScope) (*models.QueueEntry, error) {
	entry, err := s.queueRepo.Advance(ctx, scope, s.now())
	if err != nil {
		return nil, err
	}
	s.publish(scope, EventAdvanced, entry)
	return entry, nil
}

// RemoveEntry takes a waiting patient out of the queue
func (s *QueueService) RemoveEntry(ctx context.Context, scope domain.ClinicScope, entryID uint) (*models.QueueEntry, error) {
	entry, err := s.queueRepo.Remove(ctx, scope, entryID, s.now())
	if err != nil {
		return nil, err
	}
	s.publish(scope, EventEntryRemoved, entry)
	return entry, nil
}

// CloseQueue ends the day's queue. Waiting entries are kept as history.
func (s *QueueService) CloseQueue(ctx context.Context, scope domain.ClinicScope) (*models.Queue, error) {
	return s.closeOpen(ctx, scope, s.now())
}

func (s *QueueService) closeOpen(ctx context.Context, scope domain.ClinicScope, now time.Time) (*models.Queue, error) {
	queue, err := s.queueRepo.Close(ctx, scope, now)
	if err != nil {
		return nil, err
	}
	log.Info().Uint("clinic_id", scope.ClinicID()).Uint("queue_id", queue.ID).Str("date", queue.QueueDate).Msg("queue closed")
	s.publish(scope, EventQueueClosed, queue)
	return queue, nil
}

// GetQueue returns the open queue and its waiting patients
func (s *QueueService) GetQueue(ctx context.Context, scope domain.ClinicScope) (*QueueView, error) {
	queue, err := s.queueRepo.GetOpen(ctx, scope)
	if err != nil {
		return nil, err
	}
	entries, err := s.queueRepo.ListWaiting(ctx, scope, queue.ID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.QueueEntryView{}
	}
	return &QueueView{
		Queue:   queue,
		Entries: entries,
		Waiting: len(entries),
	}, nil
}

// GetQueueHistory returns every queue of one clinic-local day with all of its
// entries, served ones included. An empty date means today.
func (s *QueueService) GetQueueHistory(ctx context.Context, scope domain.ClinicScope, date string) ([]*QueueView, error) {
	if date == "" {
		date = scope.Today(s.now())
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, domain.Validationf("date must be YYYY-MM-DD")
	}

	queues, err := s.queueRepo.ListByDate(ctx, scope, date)
	if err != nil {
		return nil, err
	}
	views := make([]*QueueView, 0, len(queues))
	for _, queue := range queues {
		entries, err := s.queueRepo.ListEntries(ctx, scope, queue.ID)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []models.QueueEntryView{}
		}
		waiting := 0
		for _, e := range entries {
			if e.Status == models.EntryStatusWaiting {
				waiting++
			}
		}
		views = append(views, &QueueView{Queue: queue, Entries: entries, Waiting: waiting})
	}
	return views, nil
}

// ============================================================
// Background
// ============================================================

// CloseStaleQueues closes every queue still open from an earlier clinic-local
// day. It returns the number of queues closed.
func (s *QueueService) CloseStaleQueues(ctx context.Context) (int, error) {
	clinics, err := s.clinicRepo.List(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	closed := 0
	for _, clinic := range clinics {
		scope := domain.NewClinicScope(clinic.ID, 0, domain.RoleSystem, clinic.Location())
		queue, err := s.queueRepo.GetOpen(ctx, scope)
		if errors.Is(err, domain.ErrNoOpenQueue) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Uint("clinic_id", clinic.ID).Msg("stale queue lookup failed")
			continue
		}
		if !queue.IsStale(scope.Today(now)) {
			continue
		}
		if _, err := s.closeOpen(ctx, scope, now); err != nil && !errors.Is(err, domain.ErrNoOpenQueue) {
			log.Error().Err(err).Uint("clinic_id", clinic.ID).Msg("stale queue close failed")
			continue
		}
		closed++
	}
	return closed, nil
}
