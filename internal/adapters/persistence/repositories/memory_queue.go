package repositories

import (
	"context"
	"sort"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Queue
// ============================================================

type memQueues struct{ m *MemoryStore }

func (m *MemoryStore) openQueue(scope domain.ClinicScope) (*models.Queue, error) {
	id, ok := m.openQueues[scope.ClinicID()]
	if !ok {
		return nil, domain.ErrNoOpenQueue
	}
	return m.queues[id], nil
}

func (r memQueues) Create(ctx context.Context, scope domain.ClinicScope, queue *models.Queue) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.openQueues[scope.ClinicID()]; ok {
		return domain.ErrQueueAlreadyOpen
	}
	now := time.Now()
	open := scope.ClinicID()
	queue.ID = m.nextID("queues")
	queue.ClinicID = scope.ClinicID()
	queue.OpenClinicID = &open
	queue.CreatedAt, queue.UpdatedAt = now, now
	q := *queue
	m.queues[q.ID] = &q
	m.openQueues[open] = q.ID
	return nil
}

func (r memQueues) GetOpen(ctx context.Context, scope domain.ClinicScope) (*models.Queue, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	q, err := r.m.openQueue(scope)
	if err != nil {
		return nil, err
	}
	cp := *q
	return &cp, nil
}

func (r memQueues) Append(ctx context.Context, scope domain.ClinicScope, patientID uint, now time.Time) (*models.Queue, *models.QueueEntry, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.openQueue(scope)
	if err != nil {
		return nil, nil, err
	}
	if err := m.patientOwned(scope, patientID); err != nil {
		return nil, nil, err
	}
	for _, e := range m.entries {
		if e.QueueID == q.ID && e.PatientID == patientID && e.IsWaiting() {
			return nil, nil, domain.Validationf("patient %d is already waiting in the queue", patientID)
		}
	}

	position, err := q.Admit()
	if err != nil {
		return nil, nil, err
	}
	q.UpdatedAt = now
	entry := &models.QueueEntry{
		ID:        m.nextID("queue_entries"),
		QueueID:   q.ID,
		Position:  position,
		PatientID: patientID,
		Status:    models.EntryStatusWaiting,
		AddedBy:   scope.UserID(),
		AddedAt:   now,
	}
	m.entries[entry.ID] = entry

	qc, ec := *q, *entry
	return &qc, &ec, nil
}

func (r memQueues) Advance(ctx context.Context, scope domain.ClinicScope, now time.Time) (*models.QueueEntry, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.openQueue(scope)
	if err != nil {
		return nil, err
	}
	var head *models.QueueEntry
	for _, e := range m.entries {
		if e.QueueID == q.ID && e.IsWaiting() && (head == nil || e.Position < head.Position) {
			head = e
		}
	}
	if head == nil {
		return nil, domain.NotFoundf("waiting patient")
	}
	if err := head.Serve(now); err != nil {
		return nil, err
	}
	cp := *head
	return &cp, nil
}

func (r memQueues) Remove(ctx context.Context, scope domain.ClinicScope, entryID uint, now time.Time) (*models.QueueEntry, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.openQueue(scope)
	if err != nil {
		return nil, err
	}
	e, ok := m.entries[entryID]
	if !ok || e.QueueID != q.ID {
		return nil, domain.ErrNotFound
	}
	if err := e.Serve(now); err != nil {
		return nil, err
	}
	cp := *e
	return &cp, nil
}

func (r memQueues) Close(ctx context.Context, scope domain.ClinicScope, now time.Time) (*models.Queue, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	q, err := m.openQueue(scope)
	if err != nil {
		return nil, err
	}
	if err := q.Close(now); err != nil {
		return nil, err
	}
	q.UpdatedAt = now
	delete(m.openQueues, scope.ClinicID())
	cp := *q
	return &cp, nil
}

func (r memQueues) ListWaiting(ctx context.Context, scope domain.ClinicScope, queueID uint) ([]models.QueueEntryView, error) {
	return r.listEntries(scope, queueID, true)
}

func (r memQueues) ListEntries(ctx context.Context, scope domain.ClinicScope, queueID uint) ([]models.QueueEntryView, error) {
	return r.listEntries(scope, queueID, false)
}

func (r memQueues) listEntries(scope domain.ClinicScope, queueID uint, waitingOnly bool) ([]models.QueueEntryView, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	views := []models.QueueEntryView{}
	q, ok := m.queues[queueID]
	if !ok || q.ClinicID != scope.ClinicID() {
		return views, nil
	}
	for _, e := range m.entries {
		if e.QueueID != queueID || (waitingOnly && !e.IsWaiting()) {
			continue
		}
		view := models.QueueEntryView{
			EntryID:   e.ID,
			PatientID: e.PatientID,
			Position:  e.Position,
			Status:    e.Status,
		}
		if p, ok := m.patients[e.PatientID]; ok {
			view.PatientName = p.FullName()
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Position < views[j].Position })
	return views, nil
}

func (r memQueues) ListByDate(ctx context.Context, scope domain.ClinicScope, date string) ([]*models.Queue, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	queues := []*models.Queue{}
	for _, q := range m.queues {
		if q.ClinicID == scope.ClinicID() && q.QueueDate == date {
			cp := *q
			queues = append(queues, &cp)
		}
	}
	sort.Slice(queues, func(i, j int) bool { return queues[i].ID < queues[j].ID })
	return queues, nil
}

// ============================================================
// Dashboard
// ============================================================

type memDashboard struct{ m *MemoryStore }

// Metrics reads prescriptions and payments under one read lock
func (r memDashboard) Metrics(ctx context.Context, scope domain.ClinicScope) (*models.DashboardMetrics, error) {
	m := r.m
	m.mu.RLock()
	defer m.mu.RUnlock()

	issued := make(map[uint]bool)
	for id, pr := range m.prescriptions {
		if !pr.Issued {
			continue
		}
		if clinicID, ok := m.prescriptionClinic(id); ok && clinicID == scope.ClinicID() {
			issued[id] = true
		}
	}

	total := decimal.Zero
	for _, p := range m.payments {
		if issued[p.PrescriptionID] {
			total = total.Add(p.Amount)
		}
	}
	return &models.DashboardMetrics{
		IssuedCount:   int64(len(issued)),
		TotalPayments: total,
	}, nil
}
