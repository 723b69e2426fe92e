package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFixture struct {
	repos *Repositories
	a, b  domain.ClinicScope
}

func newMemFixture(t *testing.T) *memFixture {
	t.Helper()
	repos := NewMemoryRepositories()
	ctx := context.Background()
	scopes := make([]domain.ClinicScope, 0, 2)
	for _, name := range []string{"alpha", "beta"} {
		clinic := &models.Clinic{Name: name, Email: name + "@clinic.test"}
		admin := &models.User{Name: name, Email: name + "@staff.test", Password: "x", Role: string(domain.RoleAdmin), IsActive: true}
		require.NoError(t, repos.Clinics.CreateWithAdmin(ctx, clinic, admin))
		scopes = append(scopes, domain.NewClinicScope(clinic.ID, admin.ID, domain.RoleAdmin, clinic.Location()))
	}
	require.NoError(t, repos.Ping(ctx))
	return &memFixture{repos: repos, a: scopes[0], b: scopes[1]}
}

func (f *memFixture) patient(t *testing.T, scope domain.ClinicScope) *models.Patient {
	t.Helper()
	p := &models.Patient{FirstName: "P"}
	require.NoError(t, f.repos.Patients.Create(context.Background(), scope, p))
	return p
}

func (f *memFixture) drug(t *testing.T, scope domain.ClinicScope, qty int64) *models.Drug {
	t.Helper()
	ctx := context.Background()
	dt := &models.DrugType{Name: "Tablet"}
	require.NoError(t, f.repos.Catalog.CreateDrugType(ctx, scope, dt))
	d := &models.Drug{DrugTypeID: dt.ID, Name: "D", Quantity: decimal.NewFromInt(qty)}
	require.NoError(t, f.repos.Catalog.CreateDrug(ctx, scope, d))
	return d
}

func TestMemoryStore_CreateStampsClinicFromScope(t *testing.T) {
	f := newMemFixture(t)
	p := &models.Patient{FirstName: "Ann", ClinicID: f.b.ClinicID()}
	require.NoError(t, f.repos.Patients.Create(context.Background(), f.a, p))
	assert.Equal(t, f.a.ClinicID(), p.ClinicID)
}

func TestMemoryStore_ReadsAreScoped(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	p := f.patient(t, f.a)

	_, err := f.repos.Patients.GetByID(ctx, f.b, p.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	list, total, err := f.repos.Patients.List(ctx, f.b, PatientFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	records, err := f.repos.Records.ListByPatient(ctx, f.b, p.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryStore_IssueIsAllOrNothing(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	p := f.patient(t, f.a)
	plenty, scarce := f.drug(t, f.a, 10), f.drug(t, f.a, 1)

	pr := &models.Prescription{PatientID: p.ID, Items: []models.PrescriptionItem{
		{DrugID: plenty.ID, Quantity: decimal.NewFromInt(2)},
		{DrugID: scarce.ID, Quantity: decimal.NewFromInt(2)},
	}}
	require.NoError(t, f.repos.Prescriptions.Create(ctx, f.a, pr))

	_, err := f.repos.Prescriptions.Issue(ctx, f.a, pr.ID, &models.Payment{Amount: decimal.NewFromInt(5)}, time.Now())
	assert.True(t, errors.Is(err, domain.ErrValidation))

	got, err := f.repos.Catalog.GetDrug(ctx, f.a, plenty.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(got.Quantity))

	payments, err := f.repos.Prescriptions.ListPayments(ctx, f.a, nil)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestMemoryStore_QueuesOfTwoClinicsDoNotInterleave(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	const perClinic = 15

	var wg sync.WaitGroup
	for _, scope := range []domain.ClinicScope{f.a, f.b} {
		require.NoError(t, f.repos.Queues.Create(ctx, scope, models.NewQueue(scope.ClinicID(), scope.UserID(), "2024-06-10")))
		for i := 0; i < perClinic; i++ {
			p := f.patient(t, scope)
			wg.Add(1)
			go func(scope domain.ClinicScope, id uint) {
				defer wg.Done()
				_, _, err := f.repos.Queues.Append(ctx, scope, id, time.Now())
				assert.NoError(t, err)
			}(scope, p.ID)
		}
	}
	wg.Wait()

	for _, scope := range []domain.ClinicScope{f.a, f.b} {
		q, err := f.repos.Queues.GetOpen(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, perClinic, q.LastPosition)

		waiting, err := f.repos.Queues.ListWaiting(ctx, scope, q.ID)
		require.NoError(t, err)
		require.Len(t, waiting, perClinic)
		for i, e := range waiting {
			assert.Equal(t, i+1, e.Position)
		}
	}
}

func TestMemoryStore_MetricsSnapshotUnderConcurrentIssue(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	p := f.patient(t, f.a)
	d := f.drug(t, f.a, 1000)

	const n = 20
	ids := make([]uint, n)
	for i := range ids {
		pr := &models.Prescription{PatientID: p.ID, Items: []models.PrescriptionItem{{DrugID: d.ID, Quantity: decimal.NewFromInt(1)}}}
		require.NoError(t, f.repos.Prescriptions.Create(ctx, f.a, pr))
		ids[i] = pr.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := f.repos.Prescriptions.Issue(ctx, f.a, id, &models.Payment{Amount: decimal.NewFromInt(10)}, time.Now())
			assert.NoError(t, err)
		}(id)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			m, err := f.repos.Dashboard.Metrics(ctx, f.a)
			if !assert.NoError(t, err) {
				return
			}
			// every issued prescription carries exactly one 10.00 payment
			assert.True(t, decimal.NewFromInt(m.IssuedCount*10).Equal(m.TotalPayments))
		}
	}()
	wg.Wait()
	<-done

	m, err := f.repos.Dashboard.Metrics(ctx, f.a)
	require.NoError(t, err)
	assert.Equal(t, int64(n), m.IssuedCount)

	other, err := f.repos.Dashboard.Metrics(ctx, f.b)
	require.NoError(t, err)
	assert.Zero(t, other.IssuedCount)
}

func TestSeedCatalog(t *testing.T) {
	f := newMemFixture(t)
	ctx := context.Background()
	require.NoError(t, SeedCatalog(ctx, f.repos.Catalog, f.a))

	types, err := f.repos.Catalog.ListDrugTypes(ctx, f.a)
	require.NoError(t, err)
	assert.Len(t, types, len(models.DefaultDrugTypes))

	empty, err := f.repos.Catalog.ListDrugTypes(ctx, f.b)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
