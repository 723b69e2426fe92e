package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientService_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")

	created, err := env.patients.CreatePatient(ctx, scope, &PatientInput{
		FirstName:   "  Ann ",
		LastName:    "Perera",
		Gender:      "FEMALE",
		DateOfBirth: "1990-04-12",
		Phone:       "0771234567",
	})
	require.NoError(t, err)
	assert.Equal(t, scope.ClinicID(), created.ClinicID)
	assert.Equal(t, scope.UserID(), created.CreatedBy)
	assert.Equal(t, "Ann", created.FirstName)
	require.NotNil(t, created.DateOfBirth)

	got, err := env.patients.GetPatient(ctx, scope, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann Perera", got.FullName())
}

func TestPatientService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")

	cases := map[string]*PatientInput{
		"missing first name": {LastName: "X"},
		"bad gender":         {FirstName: "A", Gender: "UNKNOWN"},
		"bad date":           {FirstName: "A", DateOfBirth: "12/04/1990"},
		"future birth":       {FirstName: "A", DateOfBirth: "2999-01-01"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.patients.CreatePatient(ctx, scope, input)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestPatientService_OtherClinicSeesNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newClinic(t, "alpha", "UTC")
	b := env.newClinic(t, "beta", "UTC")
	patient := env.newPatient(t, a, "Ann")

	_, err := env.patients.GetPatient(ctx, b, patient.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = env.patients.UpdatePatient(ctx, b, patient.ID, &PatientInput{FirstName: "Hijack"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = env.patients.DeletePatient(ctx, b, patient.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = env.patients.ListMedicalRecords(ctx, b, patient.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = env.patients.AddMedicalRecord(ctx, b, patient.ID, &MedicalRecordInput{Content: "x"})
	assert.True(t, errors.Is(err, domain.ErrCrossTenantViolation))

	got, err := env.patients.GetPatient(ctx, a, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FirstName)
}

func TestPatientService_UpdateKeepsClinic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	patient := env.newPatient(t, scope, "Ann")

	updated, err := env.patients.UpdatePatient(ctx, scope, patient.ID, &PatientInput{FirstName: "Anne", NIC: "901234567V"})
	require.NoError(t, err)
	assert.Equal(t, "Anne", updated.FirstName)
	assert.Equal(t, scope.ClinicID(), updated.ClinicID)

	got, err := env.patients.GetPatient(ctx, scope, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "901234567V", got.NIC)
}

func TestPatientService_ListAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newClinic(t, "alpha", "UTC")
	b := env.newClinic(t, "beta", "UTC")

	for i := 0; i < 5; i++ {
		env.newPatient(t, a, fmt.Sprintf("Patient%d", i))
	}
	env.newPatient(t, a, "Zelda")
	env.newPatient(t, b, "Zelda")

	page, err := env.patients.ListPatients(ctx, a, "", pagination.NewParams(1, 4))
	require.NoError(t, err)
	assert.Len(t, page.Patients, 4)
	assert.Equal(t, int64(6), page.Meta.Total)
	assert.True(t, page.Meta.HasNext)

	page, err = env.patients.ListPatients(ctx, a, "", pagination.NewParams(2, 4))
	require.NoError(t, err)
	assert.Len(t, page.Patients, 2)

	found, err := env.patients.Search(ctx, a, "zel")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a.ClinicID(), found[0].ClinicID)

	empty, err := env.patients.Search(ctx, a, "  ")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPatientService_MedicalRecords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	patient := env.newPatient(t, scope, "Ann")

	_, err := env.patients.AddMedicalRecord(ctx, scope, patient.ID, &MedicalRecordInput{Content: "  "})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.patients.AddMedicalRecord(ctx, scope, patient.ID, &MedicalRecordInput{Content: "fever"})
	require.NoError(t, err)
	second, err := env.patients.AddMedicalRecord(ctx, scope, patient.ID, &MedicalRecordInput{Content: "follow up"})
	require.NoError(t, err)

	records, err := env.patients.ListMedicalRecords(ctx, scope, patient.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID, "newest first")

	// history blocks deletion
	err = env.patients.DeletePatient(ctx, scope, patient.ID)
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))
}

func TestPatientService_DeleteWithoutHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	patient := env.newPatient(t, scope, "Ann")

	require.NoError(t, env.patients.DeletePatient(ctx, scope, patient.ID))
	_, err := env.patients.GetPatient(ctx, scope, patient.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
