package services

import (
	"context"
	"errors"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/core/domain"

	"github.com/shopspring/decimal"
)

// DashboardService handles dashboard operations
type DashboardService struct {
	repos *repositories.Repositories
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(repos *repositories.Repositories) *DashboardService {
	return &DashboardService{repos: repos}
}

// ============================================================
// Clinic Dashboard
// ============================================================

// DashboardData represents the clinic dashboard. IssuedCount and
// TotalPayments come from one snapshot; the rest are separate reads.
type DashboardData struct {
	ClinicName    string          `json:"clinic_name"`
	Currency      string          `json:"currency"`
	IssuedCount   int64           `json:"issued_count"`
	TotalPayments decimal.Decimal `json:"total_payments"`

	PatientCount        int64  `json:"patient_count"`
	PendingPrescription int64  `json:"pending_prescriptions"`
	QueueStatus         string `json:"queue_status"`
	QueueWaiting        int    `json:"queue_waiting"`
}

// Metrics returns the issued prescription count and the sum of their payments
func (s *DashboardService) Metrics(ctx context.Context, scope domain.ClinicScope) (*models.DashboardMetrics, error) {
	return s.repos.Dashboard.Metrics(ctx, scope)
}

// GetDashboard returns the metrics plus informational counters
func (s *DashboardService) GetDashboard(ctx context.Context, scope domain.ClinicScope) (*DashboardData, error) {
	metrics, err := s.Metrics(ctx, scope)
	if err != nil {
		return nil, err
	}

	data := &DashboardData{
		IssuedCount:   metrics.IssuedCount,
		TotalPayments: metrics.TotalPayments,
		QueueStatus:   models.QueueStatusClosed,
	}

	clinic, err := s.repos.Clinics.GetByID(ctx, scope.ClinicID())
	if err != nil {
		return nil, err
	}
	data.ClinicName = clinic.Name
	data.Currency = clinic.Currency

	if data.PatientCount, err = s.repos.Patients.Count(ctx, scope); err != nil {
		return nil, err
	}
	if data.PendingPrescription, err = s.repos.Prescriptions.CountPending(ctx, scope); err != nil {
		return nil, err
	}

	queue, err := s.repos.Queues.GetOpen(ctx, scope)
	switch {
	case err == nil:
		data.QueueStatus = queue.Status
		waiting, err := s.repos.Queues.ListWaiting(ctx, scope, queue.ID)
		if err != nil {
			return nil, err
		}
		data.QueueWaiting = len(waiting)
	case !errors.Is(err, domain.ErrNoOpenQueue):
		return nil, err
	}

	return data, nil
}
