//go:build integration

package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/config"
	"clinicdesk/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// Run with: go test -tags integration ./internal/core/services/...
// Needs a Docker daemon. Every test registers fresh clinics, so they share
// one database.

var integrationDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("clinicdesk_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	db, err := connectContainer(ctx, container)
	if err != nil {
		_ = container.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to prepare database: %v\n", err)
		os.Exit(1)
	}
	integrationDB = db

	code := m.Run()
	_ = config.CloseDatabase(db)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// connectContainer goes through the same connect and migrate path as the server
func connectContainer(ctx context.Context, container *postgres.PostgresContainer) (*gorm.DB, error) {
	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, err
	}

	db, err := config.ConnectDatabase(&config.Config{
		AppMode: "prod",
		Database: config.DatabaseConfig{
			Driver:   config.DriverPostgres,
			Host:     host,
			Port:     port.Port(),
			User:     "test",
			Password: "test",
			DBName:   "clinicdesk_test",
			SSLMode:  "disable",
		},
	})
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newGormEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NotNil(t, integrationDB)
	return newEnv(repositories.NewGormRepositories(integrationDB))
}

func TestGorm_Ping(t *testing.T) {
	env := newGormEnv(t)
	assert.NoError(t, env.repos.Ping(context.Background()))
}

func TestGorm_DashboardCountsOnlyIssued(t *testing.T) {
	env := newGormEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	other := env.newClinic(t, "beta", "UTC")
	patient := env.newPatient(t, scope, "Ann")
	drug := env.newDrug(t, scope, "Paracetamol", 100)

	for _, paid := range []int64{100, 50} {
		pr := env.newPrescription(t, scope, patient.ID, drug.ID, 1)
		_, err := env.prescriptions.IssuePrescription(ctx, scope, pr.ID, &IssueInput{Amount: amount(paid)})
		require.NoError(t, err)
	}

	pending := env.newPrescription(t, scope, patient.ID, drug.ID, 1)
	_, err := env.prescriptions.AddPayment(ctx, scope, pending.ID, &PaymentInput{Amount: decimal.NewFromInt(999)})
	require.NoError(t, err)

	foreign := env.newPrescription(t, other, env.newPatient(t, other, "Bob").ID, env.newDrug(t, other, "X", 10).ID, 1)
	_, err = env.prescriptions.IssuePrescription(ctx, other, foreign.ID, &IssueInput{Amount: amount(500)})
	require.NoError(t, err)

	metrics, err := env.dashboard.Metrics(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(2), metrics.IssuedCount)
	assert.True(t, decimal.NewFromInt(150).Equal(metrics.TotalPayments), "got %s", metrics.TotalPayments)

	dash, err := env.dashboard.GetDashboard(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(1), dash.PendingPrescription)

	got, err := env.catalog.GetDrug(ctx, scope, drug.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(98).Equal(got.Quantity), "got %s", got.Quantity)
}

func TestGorm_IssueInsufficientStockChangesNothing(t *testing.T) {
	env := newGormEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	drug := env.newDrug(t, scope, "Scarce", 2)
	pr := env.newPrescription(t, scope, env.newPatient(t, scope, "Ann").ID, drug.ID, 5)

	_, err := env.prescriptions.IssuePrescription(ctx, scope, pr.ID, &IssueInput{Amount: amount(10)})
	assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)

	got, err := env.catalog.GetDrug(ctx, scope, drug.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(got.Quantity))

	payments, err := env.prescriptions.ListPayments(ctx, scope, &pr.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	metrics, err := env.dashboard.Metrics(ctx, scope)
	require.NoError(t, err)
	assert.Zero(t, metrics.IssuedCount)
}

func TestGorm_QueueDay(t *testing.T) {
	env := newGormEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	ann := env.newPatient(t, scope, "Ann")
	bob := env.newPatient(t, scope, "Bob")
	cid := env.newPatient(t, scope, "Cid")

	_, err := env.queues.AddToQueue(ctx, scope, ann.ID)
	assert.True(t, errors.Is(err, domain.ErrNoOpenQueue))

	_, err = env.queues.CreateQueue(ctx, scope)
	require.NoError(t, err)
	_, err = env.queues.CreateQueue(ctx, scope)
	assert.True(t, errors.Is(err, domain.ErrQueueAlreadyOpen))

	entries := map[uint]*models.QueueEntry{}
	for i, p := range []*models.Patient{ann, bob, cid} {
		entry, err := env.queues.AddToQueue(ctx, scope, p.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, entry.Position)
		entries[p.ID] = entry
	}
	_, err = env.queues.AddToQueue(ctx, scope, ann.ID)
	assert.True(t, errors.Is(err, domain.ErrValidation), "already waiting")

	view, err := env.queues.GetQueue(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusActive, view.Queue.Status)
	require.Len(t, view.Entries, 3)
	assert.Equal(t, "Ann Test", view.Entries[0].PatientName)

	served, err := env.queues.Advance(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, served.PatientID)

	_, err = env.queues.RemoveEntry(ctx, scope, entries[cid.ID].ID)
	require.NoError(t, err)

	view, err = env.queues.GetQueue(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusActive, view.Queue.Status)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, bob.ID, view.Entries[0].PatientID)

	closed, err := env.queues.CloseQueue(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusClosed, closed.Status)

	_, err = env.queues.AddToQueue(ctx, scope, bob.ID)
	assert.True(t, errors.Is(err, domain.ErrNoOpenQueue))
	_, err = env.queues.GetQueue(ctx, scope)
	assert.True(t, errors.Is(err, domain.ErrNoOpenQueue))

	history, err := env.queues.GetQueueHistory(ctx, scope, "")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Len(t, history[0].Entries, 3)
	assert.Equal(t, 1, history[0].Waiting)

	reopened, err := env.queues.CreateQueue(ctx, scope)
	require.NoError(t, err)
	assert.NotEqual(t, closed.ID, reopened.ID)
}

func TestGorm_ConcurrentAddsGetDistinctPositions(t *testing.T) {
	env := newGormEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	_, err := env.queues.CreateQueue(ctx, scope)
	require.NoError(t, err)

	const n = 20
	patients := make([]*models.Patient, n)
	for i := range patients {
		patients[i] = env.newPatient(t, scope, fmt.Sprintf("P%d", i))
	}

	var wg sync.WaitGroup
	positions := make([]int, n)
	errs := make([]error, n)
	for i := range patients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := env.queues.AddToQueue(ctx, scope, patients[i].ID)
			errs[i] = err
			if err == nil {
				positions[i] = entry.Position
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Ints(positions)
	for i, p := range positions {
		assert.Equal(t, i+1, p)
	}
}

func TestGorm_ConcurrentCreateOpensOneQueue(t *testing.T) {
	env := newGormEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.queues.CreateQueue(ctx, scope)
		}(i)
	}
	wg.Wait()

	opened := 0
	for _, err := range errs {
		if err == nil {
			opened++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrQueueAlreadyOpen), "got %v", err)
	}
	assert.Equal(t, 1, opened)
}

func TestGorm_DeletesAreRestricted(t *testing.T) {
	env := newGormEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	patient := env.newPatient(t, scope, "Ann")
	drug := env.newDrug(t, scope, "Ibuprofen", 10)

	dosage, err := env.catalog.CreateDosageOption(ctx, scope, "dosages", &DosageOptionInput{Description: "1 tablet"})
	require.NoError(t, err)
	pr, err := env.prescriptions.CreatePrescription(ctx, scope, &CreatePrescriptionInput{
		PatientID: patient.ID,
		Items:     []PrescriptionItemInput{{DrugID: drug.ID, DosageID: &dosage.ID, Quantity: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)
	_, err = env.prescriptions.AddPayment(ctx, scope, pr.ID, &PaymentInput{Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	_, err = env.patients.AddMedicalRecord(ctx, scope, patient.ID, &MedicalRecordInput{Content: "fever"})
	require.NoError(t, err)

	cases := map[string]func() error{
		"drug type with drugs": func() error { return env.catalog.DeleteDrugType(ctx, scope, drug.DrugTypeID) },
		"prescribed drug":      func() error { return env.catalog.DeleteDrug(ctx, scope, drug.ID) },
		"prescribed dosage":    func() error { return env.catalog.DeleteDosageOption(ctx, scope, "dosages", dosage.ID) },
		"paid prescription":    func() error { return env.prescriptions.DeletePrescription(ctx, scope, pr.ID) },
		"patient with history": func() error { return env.patients.DeletePatient(ctx, scope, patient.ID) },
	}
	for name, del := range cases {
		t.Run(name, func(t *testing.T) {
			err := del()
			assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity), "got %v", err)
		})
	}

	_, err = env.catalog.GetDrug(ctx, scope, drug.ID)
	assert.NoError(t, err, "drug survives")
	_, err = env.patients.GetPatient(ctx, scope, patient.ID)
	assert.NoError(t, err, "patient survives")

	spare := env.newPatient(t, scope, "Spare")
	require.NoError(t, env.patients.DeletePatient(ctx, scope, spare.ID))
	_, err = env.patients.GetPatient(ctx, scope, spare.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestGorm_CrossTenant(t *testing.T) {
	env := newGormEnv(t)
	ctx := context.Background()
	a := env.newClinic(t, "alpha", "UTC")
	b := env.newClinic(t, "beta", "UTC")
	patient := env.newPatient(t, a, "Ann")
	drug := env.newDrug(t, a, "Ibuprofen", 10)
	pr := env.newPrescription(t, a, patient.ID, drug.ID, 1)

	// reads of another clinic's rows look like missing rows
	_, err := env.patients.GetPatient(ctx, b, patient.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = env.catalog.GetDrug(ctx, b, drug.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = env.prescriptions.GetPrescription(ctx, b, pr.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	err = env.patients.DeletePatient(ctx, b, patient.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	list, err := env.patients.ListPatients(ctx, b, "", nil)
	require.NoError(t, err)
	assert.Empty(t, list.Patients)

	// references to them are violations
	_, err = env.queues.CreateQueue(ctx, b)
	require.NoError(t, err)
	_, err = env.queues.AddToQueue(ctx, b, patient.ID)
	assert.True(t, errors.Is(err, domain.ErrCrossTenantViolation), "got %v", err)

	bPatient := env.newPatient(t, b, "Bob")
	_, err = env.prescriptions.CreatePrescription(ctx, b, &CreatePrescriptionInput{
		PatientID: bPatient.ID,
		Items:     []PrescriptionItemInput{{DrugID: drug.ID, Quantity: decimal.NewFromInt(1)}},
	})
	assert.True(t, errors.Is(err, domain.ErrCrossTenantViolation), "got %v", err)

	_, err = env.prescriptions.AddPayment(ctx, b, pr.ID, &PaymentInput{Amount: decimal.NewFromInt(5)})
	assert.True(t, errors.Is(err, domain.ErrCrossTenantViolation), "got %v", err)

	_, err = env.patients.AddMedicalRecord(ctx, b, patient.ID, &MedicalRecordInput{Content: "x"})
	assert.True(t, errors.Is(err, domain.ErrCrossTenantViolation), "got %v", err)

	// a missing row is still not found
	_, err = env.queues.AddToQueue(ctx, b, 999999)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestGorm_IssuedPaymentDeleteIsAdminOnly(t *testing.T) {
	env := newGormEnv(t)
	ctx := context.Background()
	admin := env.newClinic(t, "alpha", "UTC")
	staff := env.newStaff(t, admin)
	pr := env.newPrescription(t, admin, env.newPatient(t, admin, "Ann").ID, env.newDrug(t, admin, "D", 5).ID, 1)

	_, err := env.prescriptions.IssuePrescription(ctx, admin, pr.ID, &IssueInput{Amount: amount(40)})
	require.NoError(t, err)
	payments, err := env.prescriptions.ListPayments(ctx, admin, &pr.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	err = env.prescriptions.DeletePayment(ctx, staff, payments[0].ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden), "got %v", err)

	require.NoError(t, env.prescriptions.DeletePayment(ctx, admin, payments[0].ID))
	err = env.prescriptions.DeletePayment(ctx, admin, payments[0].ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	metrics, err := env.dashboard.Metrics(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.IssuedCount)
	assert.True(t, metrics.TotalPayments.IsZero())
}
