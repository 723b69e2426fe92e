package services

import (
	"context"
	"errors"
	"testing"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_DrugTypeDeleteIsRestricted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")

	_, err := env.catalog.CreateDrugType(ctx, scope, &DrugTypeInput{Name: "   "})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	syrup, err := env.catalog.CreateDrugType(ctx, scope, &DrugTypeInput{Name: "Syrup"})
	require.NoError(t, err)
	_, err = env.catalog.CreateDrug(ctx, scope, &DrugInput{DrugTypeID: syrup.ID, Name: "Cough syrup"})
	require.NoError(t, err)

	err = env.catalog.DeleteDrugType(ctx, scope, syrup.ID)
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))

	unused, err := env.catalog.CreateDrugType(ctx, scope, &DrugTypeInput{Name: "Cream"})
	require.NoError(t, err)
	require.NoError(t, env.catalog.DeleteDrugType(ctx, scope, unused.ID))

	types, err := env.catalog.ListDrugTypes(ctx, scope)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Syrup", types[0].Name)
}

func TestCatalogService_DrugDeleteRestrictedOncePrescribed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	drug := env.newDrug(t, scope, "Ibuprofen", 10)
	spare := env.newDrug(t, scope, "Spare", 10)
	env.newPrescription(t, scope, env.newPatient(t, scope, "Ann").ID, drug.ID, 1)

	err := env.catalog.DeleteDrug(ctx, scope, drug.ID)
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))

	_, err = env.catalog.GetDrug(ctx, scope, drug.ID)
	assert.NoError(t, err, "drug survives the failed delete")

	require.NoError(t, env.catalog.DeleteDrug(ctx, scope, spare.ID))
	_, err = env.catalog.GetDrug(ctx, scope, spare.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCatalogService_DrugsAreScoped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.newClinic(t, "alpha", "UTC")
	b := env.newClinic(t, "beta", "UTC")
	drug := env.newDrug(t, a, "Ibuprofen", 10)

	_, err := env.catalog.GetDrug(ctx, b, drug.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = env.catalog.DeleteDrug(ctx, b, drug.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	list, err := env.catalog.ListDrugs(ctx, b, "")
	require.NoError(t, err)
	assert.Empty(t, list)

	// another clinic's drug type cannot be used
	foreignType, err := env.catalog.CreateDrugType(ctx, b, &DrugTypeInput{Name: "Tablet"})
	require.NoError(t, err)
	_, err = env.catalog.CreateDrug(ctx, a, &DrugInput{DrugTypeID: foreignType.ID, Name: "X"})
	assert.True(t, errors.Is(err, domain.ErrCrossTenantViolation))
}

func TestCatalogService_UpdateDrugKeepsQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	drug := env.newDrug(t, scope, "Ibuprofen", 10)

	updated, err := env.catalog.UpdateDrug(ctx, scope, drug.ID, &DrugInput{
		DrugTypeID: drug.DrugTypeID,
		Name:       "Ibuprofen 400",
		UnitPrice:  decimal.NewFromInt(3),
		Quantity:   decimal.NewFromInt(999),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen 400", updated.Name)
	assert.True(t, decimal.NewFromInt(10).Equal(updated.Quantity))
	require.NotNil(t, updated.DrugType)
	assert.Equal(t, "Tablet", updated.DrugType.Name)

	found, err := env.catalog.ListDrugs(ctx, scope, "ibu")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestCatalogService_DosageKinds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")

	for _, kind := range []string{"dosages", "FREQUENCY", "periods"} {
		_, err := env.catalog.CreateDosageOption(ctx, scope, kind, &DosageOptionInput{Description: "opt " + kind})
		require.NoError(t, err, kind)
	}

	_, err := env.catalog.CreateDosageOption(ctx, scope, "colours", &DosageOptionInput{Description: "red"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.catalog.CreateDosageOption(ctx, scope, "dosage", &DosageOptionInput{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	catalog, err := env.catalog.ListDosageOptions(ctx, scope)
	require.NoError(t, err)
	assert.Len(t, catalog.Dosages, 1)
	assert.Len(t, catalog.Frequencies, 1)
	assert.Len(t, catalog.Periods, 1)
	assert.Equal(t, models.DosageKindFrequency, catalog.Frequencies[0].Kind)
}

func TestCatalogService_DosageDeleteIsRestricted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	drug := env.newDrug(t, scope, "D", 10)

	dosage, err := env.catalog.CreateDosageOption(ctx, scope, "dosages", &DosageOptionInput{Description: "1 tablet"})
	require.NoError(t, err)
	_, err = env.prescriptions.CreatePrescription(ctx, scope, &CreatePrescriptionInput{
		PatientID: env.newPatient(t, scope, "Ann").ID,
		Items:     []PrescriptionItemInput{{DrugID: drug.ID, DosageID: &dosage.ID, Quantity: decimal.NewFromInt(1)}},
	})
	require.NoError(t, err)

	err = env.catalog.DeleteDosageOption(ctx, scope, "dosages", dosage.ID)
	assert.True(t, errors.Is(err, domain.ErrReferentialIntegrity))

	// wrong kind in the path does not find it
	err = env.catalog.DeleteDosageOption(ctx, scope, "periods", dosage.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCatalogService_AddStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	scope := env.newClinic(t, "alpha", "UTC")
	other := env.newClinic(t, "beta", "UTC")
	drug := env.newDrug(t, scope, "D", 10)

	updated, err := env.catalog.AddStock(ctx, scope, drug.ID, &StockInput{
		Quantity:       decimal.NewFromInt(15),
		ManufacturedAt: "2024-01-01",
		ExpiresAt:      "2026-01-01",
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(updated.Quantity))

	_, err = env.catalog.AddStock(ctx, scope, drug.ID, &StockInput{Quantity: decimal.Zero})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = env.catalog.AddStock(ctx, scope, drug.ID, &StockInput{
		Quantity:       decimal.NewFromInt(1),
		ManufacturedAt: "2025-01-01",
		ExpiresAt:      "2024-01-01",
	})
	assert.True(t, errors.Is(err, domain.ErrValidation), "expiry before manufacture")

	_, err = env.catalog.AddStock(ctx, other, drug.ID, &StockInput{Quantity: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, domain.ErrCrossTenantViolation))
}
