package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Catalog
// ============================================================

type memCatalog struct{ m *MemoryStore }

func (m *MemoryStore) drugTypeOwned(scope domain.ClinicScope, id uint) error {
	t, ok := m.drugTypes[id]
	var clinicID uint
	if ok {
		clinicID = t.ClinicID
	}
	return owned(scope, "drug type", id, clinicID, ok)
}

func (m *MemoryStore) drugOwned(scope domain.ClinicScope, id uint) error {
	d, ok := m.drugs[id]
	var clinicID uint
	if ok {
		clinicID = d.ClinicID
	}
	return owned(scope, "drug", id, clinicID, ok)
}

func (m *MemoryStore) drugWithType(d *models.Drug) *models.Drug {
	cp := *d
	cp.Stocks = nil
	cp.DrugType = nil
	if t, ok := m.drugTypes[d.DrugTypeID]; ok {
		dt := *t
		cp.DrugType = &dt
	}
	return &cp
}

func (r memCatalog) CreateDrugType(ctx context.Context, scope domain.ClinicScope, drugType *models.DrugType) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	drugType.ID = r.m.nextID("drug_types")
	drugType.ClinicID = scope.ClinicID()
	drugType.CreatedAt = time.Now()
	t := *drugType
	r.m.drugTypes[t.ID] = &t
	return nil
}

func (r memCatalog) ListDrugTypes(ctx context.Context, scope domain.ClinicScope) ([]*models.DrugType, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	types := []*models.DrugType{}
	for _, t := range r.m.drugTypes {
		if t.ClinicID == scope.ClinicID() {
			cp := *t
			types = append(types, &cp)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}

func (r memCatalog) DeleteDrugType(ctx context.Context, scope domain.ClinicScope, id uint) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.drugTypes[id]
	if !ok || t.ClinicID != scope.ClinicID() {
		return domain.ErrNotFound
	}
	for _, d := range m.drugs {
		if d.DrugTypeID == id {
			return domain.Referencedf("drug type", "drugs")
		}
	}
	delete(m.drugTypes, id)
	return nil
}

func (r memCatalog) CreateDosageOption(ctx context.Context, scope domain.ClinicScope, option *models.DosageOption) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	option.ID = r.m.nextID("dosage_options")
	option.ClinicID = scope.ClinicID()
	option.CreatedAt = time.Now()
	o := *option
	r.m.dosageOptions[o.ID] = &o
	return nil
}

func (r memCatalog) ListDosageOptions(ctx context.Context, scope domain.ClinicScope) ([]*models.DosageOption, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	options := []*models.DosageOption{}
	for _, o := range r.m.dosageOptions {
		if o.ClinicID == scope.ClinicID() {
			cp := *o
			options = append(options, &cp)
		}
	}
	sort.Slice(options, func(i, j int) bool {
		if options[i].Kind != options[j].Kind {
			return options[i].Kind < options[j].Kind
		}
		return options[i].Description < options[j].Description
	})
	return options, nil
}

func (r memCatalog) DeleteDosageOption(ctx context.Context, scope domain.ClinicScope, kind string, id uint) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.dosageOptions[id]
	if !ok || o.ClinicID != scope.ClinicID() || o.Kind != kind {
		return domain.ErrNotFound
	}
	for _, item := range m.items {
		for _, ref := range item.DosageRefs() {
			if ref == id {
				return domain.Referencedf("dosage option", "prescriptions")
			}
		}
	}
	delete(m.dosageOptions, id)
	return nil
}

func (r memCatalog) CreateDrug(ctx context.Context, scope domain.ClinicScope, drug *models.Drug) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.drugTypeOwned(scope, drug.DrugTypeID); err != nil {
		return err
	}
	now := time.Now()
	drug.ID = m.nextID("drugs")
	drug.ClinicID = scope.ClinicID()
	drug.CreatedBy = scope.UserID()
	drug.CreatedAt, drug.UpdatedAt = now, now
	d := *drug
	d.DrugType, d.Stocks = nil, nil
	m.drugs[d.ID] = &d
	return nil
}

func (r memCatalog) GetDrug(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Drug, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	d, ok := r.m.drugs[id]
	if !ok || d.ClinicID != scope.ClinicID() {
		return nil, domain.ErrNotFound
	}
	return r.m.drugWithType(d), nil
}

func (r memCatalog) ListDrugs(ctx context.Context, scope domain.ClinicScope, query string) ([]*models.Drug, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	drugs := []*models.Drug{}
	for _, d := range r.m.drugs {
		if d.ClinicID != scope.ClinicID() || (query != "" && !containsFold(d.Name, query)) {
			continue
		}
		drugs = append(drugs, r.m.drugWithType(d))
	}
	sort.Slice(drugs, func(i, j int) bool { return drugs[i].Name < drugs[j].Name })
	return drugs, nil
}

func (r memCatalog) UpdateDrug(ctx context.Context, scope domain.ClinicScope, drug *models.Drug) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.drugOwned(scope, drug.ID); err != nil {
		return err
	}
	if err := m.drugTypeOwned(scope, drug.DrugTypeID); err != nil {
		return err
	}
	d := m.drugs[drug.ID]
	d.DrugTypeID = drug.DrugTypeID
	d.Name = drug.Name
	d.Manufacturer = drug.Manufacturer
	d.UnitPrice = drug.UnitPrice
	d.UpdatedAt = time.Now()
	return nil
}

func (r memCatalog) DeleteDrug(ctx context.Context, scope domain.ClinicScope, id uint) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drugs[id]
	if !ok || d.ClinicID != scope.ClinicID() {
		return domain.ErrNotFound
	}
	for _, item := range m.items {
		if item.DrugID == id {
			return domain.Referencedf("drug", "prescriptions")
		}
	}
	for sid, s := range m.stocks {
		if s.DrugID == id {
			delete(m.stocks, sid)
		}
	}
	delete(m.drugs, id)
	return nil
}

func (r memCatalog) AddStock(ctx context.Context, scope domain.ClinicScope, stock *models.Stock) (*models.Drug, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.drugOwned(scope, stock.DrugID); err != nil {
		return nil, err
	}
	stock.ID = m.nextID("stocks")
	stock.CreatedBy = scope.UserID()
	stock.CreatedAt = time.Now()
	s := *stock
	m.stocks[s.ID] = &s

	d := m.drugs[stock.DrugID]
	d.Quantity = d.Quantity.Add(stock.Quantity)
	d.UpdatedAt = time.Now()
	return m.drugWithType(d), nil
}

// ============================================================
// Prescriptions & Payments
// ============================================================

type memPrescriptions struct{ m *MemoryStore }

// assemble copies a prescription with its items and payments attached
func (m *MemoryStore) assemble(pr *models.Prescription) *models.Prescription {
	cp := *pr
	cp.Items = []models.PrescriptionItem{}
	cp.Payments = nil

	var itemIDs []uint
	for id, item := range m.items {
		if item.PrescriptionID == pr.ID {
			itemIDs = append(itemIDs, id)
		}
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })
	for _, id := range itemIDs {
		item := *m.items[id]
		if d, ok := m.drugs[item.DrugID]; ok {
			item.Drug = m.drugWithType(d)
		}
		item.Dosage = m.optionCopy(item.DosageID)
		item.Frequency = m.optionCopy(item.FrequencyID)
		item.Period = m.optionCopy(item.PeriodID)
		cp.Items = append(cp.Items, item)
	}

	for _, p := range m.sortedPayments() {
		if p.PrescriptionID == pr.ID {
			cp.Payments = append(cp.Payments, *p)
		}
	}
	return &cp
}

func (m *MemoryStore) optionCopy(id *uint) *models.DosageOption {
	if id == nil {
		return nil
	}
	o, ok := m.dosageOptions[*id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

func (m *MemoryStore) sortedPayments() []*models.Payment {
	payments := make([]*models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID < payments[j].ID })
	return payments
}

func (m *MemoryStore) checkItemRefs(scope domain.ClinicScope, item *models.PrescriptionItem) error {
	if err := m.drugOwned(scope, item.DrugID); err != nil {
		return err
	}
	refs := []struct {
		id   *uint
		kind string
	}{
		{item.DosageID, models.DosageKindDosage},
		{item.FrequencyID, models.DosageKindFrequency},
		{item.PeriodID, models.DosageKindPeriod},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		o, ok := m.dosageOptions[*ref.id]
		var clinicID uint
		if ok {
			clinicID = o.ClinicID
		}
		if err := owned(scope, "dosage option", *ref.id, clinicID, ok); err != nil {
			return err
		}
		if o.Kind != ref.kind {
			return domain.Validationf("option %d is a %s, not a %s", o.ID, o.Kind, ref.kind)
		}
	}
	return nil
}

func (r memPrescriptions) Create(ctx context.Context, scope domain.ClinicScope, prescription *models.Prescription) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.patientOwned(scope, prescription.PatientID); err != nil {
		return err
	}
	for i := range prescription.Items {
		if err := m.checkItemRefs(scope, &prescription.Items[i]); err != nil {
			return err
		}
	}

	now := time.Now()
	prescription.ID = m.nextID("prescriptions")
	prescription.CreatedBy = scope.UserID()
	prescription.Issued = false
	prescription.IssuedAt, prescription.IssuedBy = nil, nil
	prescription.CreatedAt, prescription.UpdatedAt = now, now
	stored := *prescription
	stored.Items, stored.Payments = nil, nil
	m.prescriptions[stored.ID] = &stored

	for i := range prescription.Items {
		item := &prescription.Items[i]
		item.ID = m.nextID("prescription_items")
		item.PrescriptionID = prescription.ID
		cp := *item
		cp.Drug, cp.Dosage, cp.Frequency, cp.Period = nil, nil, nil, nil
		m.items[cp.ID] = &cp
	}
	return nil
}

func (r memPrescriptions) scoped(scope domain.ClinicScope, id uint) (*models.Prescription, bool) {
	clinicID, ok := r.m.prescriptionClinic(id)
	if !ok || clinicID != scope.ClinicID() {
		return nil, false
	}
	return r.m.prescriptions[id], true
}

func (r memPrescriptions) GetByID(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Prescription, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	pr, ok := r.scoped(scope, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.m.assemble(pr), nil
}

func (r memPrescriptions) List(ctx context.Context, scope domain.ClinicScope, filter PrescriptionFilter) ([]*models.Prescription, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	list := []*models.Prescription{}
	for id, pr := range r.m.prescriptions {
		if _, ok := r.scoped(scope, id); !ok {
			continue
		}
		if filter.PatientID != nil && pr.PatientID != *filter.PatientID {
			continue
		}
		if filter.Issued != nil && pr.Issued != *filter.Issued {
			continue
		}
		list = append(list, r.m.assemble(pr))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (r memPrescriptions) Delete(ctx context.Context, scope domain.ClinicScope, id uint) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := r.scoped(scope, id)
	if !ok {
		return domain.ErrNotFound
	}
	for _, p := range m.payments {
		if p.PrescriptionID == id {
			return domain.Referencedf("prescription", "payments")
		}
	}
	if pr.Issued {
		return domain.Validationf("issued prescriptions cannot be deleted")
	}
	for itemID, item := range m.items {
		if item.PrescriptionID == id {
			delete(m.items, itemID)
		}
	}
	delete(m.prescriptions, id)
	return nil
}

func (r memPrescriptions) Issue(ctx context.Context, scope domain.ClinicScope, id uint, payment *models.Payment, now time.Time) (*models.Prescription, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := r.scoped(scope, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if pr.Issued {
		return nil, domain.Validationf("prescription %d is already issued", id)
	}

	needed := make(map[uint]decimal.Decimal)
	for _, item := range m.items {
		if item.PrescriptionID == id {
			needed[item.DrugID] = needed[item.DrugID].Add(item.Quantity)
		}
	}
	// check everything before touching anything
	for drugID, qty := range needed {
		d, ok := m.drugs[drugID]
		if !ok || d.ClinicID != scope.ClinicID() {
			return nil, fmt.Errorf("%w: drug %d", domain.ErrCrossTenantViolation, drugID)
		}
		if d.Quantity.LessThan(qty) {
			return nil, domain.Validationf("insufficient stock for %s: have %s, need %s",
				d.Name, d.Quantity.String(), qty.String())
		}
	}
	for drugID, qty := range needed {
		d := m.drugs[drugID]
		d.Quantity = d.Quantity.Sub(qty)
		d.UpdatedAt = now
	}

	issuedBy := scope.UserID()
	pr.Issued = true
	pr.IssuedAt = &now
	pr.IssuedBy = &issuedBy
	pr.UpdatedAt = now

	if payment != nil {
		payment.ID = m.nextID("payments")
		payment.PrescriptionID = id
		payment.CreatedBy = scope.UserID()
		payment.CreatedAt = now
		p := *payment
		m.payments[p.ID] = &p
	}
	return m.assemble(pr), nil
}

func (r memPrescriptions) CreatePayment(ctx context.Context, scope domain.ClinicScope, payment *models.Payment) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	clinicID, ok := m.prescriptionClinic(payment.PrescriptionID)
	if err := owned(scope, "prescription", payment.PrescriptionID, clinicID, ok); err != nil {
		return err
	}
	payment.ID = m.nextID("payments")
	payment.CreatedBy = scope.UserID()
	payment.CreatedAt = time.Now()
	p := *payment
	m.payments[p.ID] = &p
	return nil
}

func (r memPrescriptions) ListPayments(ctx context.Context, scope domain.ClinicScope, prescriptionID *uint) ([]*models.Payment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	payments := []*models.Payment{}
	for _, p := range r.m.sortedPayments() {
		if clinicID, ok := r.m.prescriptionClinic(p.PrescriptionID); !ok || clinicID != scope.ClinicID() {
			continue
		}
		if prescriptionID != nil && p.PrescriptionID != *prescriptionID {
			continue
		}
		cp := *p
		payments = append(payments, &cp)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].ID > payments[j].ID })
	return payments, nil
}

func (r memPrescriptions) DeletePayment(ctx context.Context, scope domain.ClinicScope, id uint, allowIssued bool) (*models.Payment, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domain.NotFoundf("payment")
	}
	if clinicID, ok := m.prescriptionClinic(p.PrescriptionID); !ok || clinicID != scope.ClinicID() {
		return nil, domain.NotFoundf("payment")
	}
	if pr := m.prescriptions[p.PrescriptionID]; !allowIssued && pr != nil && pr.Issued {
		return nil, fmt.Errorf("%w: payment %d belongs to an issued prescription", domain.ErrForbidden, id)
	}
	delete(m.payments, id)
	cp := *p
	return &cp, nil
}

func (r memPrescriptions) CountPending(ctx context.Context, scope domain.ClinicScope) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var n int64
	for id, pr := range r.m.prescriptions {
		if _, ok := r.scoped(scope, id); ok && !pr.Issued {
			n++
		}
	}
	return n, nil
}
