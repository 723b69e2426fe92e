package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/core/domain"
	"clinicdesk/internal/pkg/pagination"
)

// MemoryStore is an in-process stand-in for the SQL database. It backs the
// "memory" driver and the service tests. One RWMutex guards every table, so
// each method sees and produces a consistent state.
type MemoryStore struct {
	mu  sync.RWMutex
	seq map[string]uint

	clinics       map[uint]*models.Clinic
	users         map[uint]*models.User
	tokens        map[uint]*models.RefreshToken
	patients      map[uint]*models.Patient
	records       map[uint]*models.MedicalRecord
	drugTypes     map[uint]*models.DrugType
	dosageOptions map[uint]*models.DosageOption
	drugs         map[uint]*models.Drug
	stocks        map[uint]*models.Stock
	prescriptions map[uint]*models.Prescription
	items         map[uint]*models.PrescriptionItem
	payments      map[uint]*models.Payment
	queues        map[uint]*models.Queue
	entries       map[uint]*models.QueueEntry
	// openQueues plays the unique index on queues.open_clinic_id
	openQueues map[uint]uint
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seq:           make(map[string]uint),
		clinics:       make(map[uint]*models.Clinic),
		users:         make(map[uint]*models.User),
		tokens:        make(map[uint]*models.RefreshToken),
		patients:      make(map[uint]*models.Patient),
		records:       make(map[uint]*models.MedicalRecord),
		drugTypes:     make(map[uint]*models.DrugType),
		dosageOptions: make(map[uint]*models.DosageOption),
		drugs:         make(map[uint]*models.Drug),
		stocks:        make(map[uint]*models.Stock),
		prescriptions: make(map[uint]*models.Prescription),
		items:         make(map[uint]*models.PrescriptionItem),
		payments:      make(map[uint]*models.Payment),
		queues:        make(map[uint]*models.Queue),
		entries:       make(map[uint]*models.QueueEntry),
		openQueues:    make(map[uint]uint),
	}
}

// NewMemoryRepositories wires every repository to one fresh MemoryStore
func NewMemoryRepositories() *Repositories {
	return NewMemoryStore().Repositories()
}

// Repositories exposes the store through the repository interfaces
func (m *MemoryStore) Repositories() *Repositories {
	return &Repositories{
		Clinics:       memClinics{m},
		Users:         memUsers{m},
		RefreshTokens: memTokens{m},
		Patients:      memPatients{m},
		Records:       memRecords{m},
		Catalog:       memCatalog{m},
		Prescriptions: memPrescriptions{m},
		Queues:        memQueues{m},
		Dashboard:     memDashboard{m},
		Ping:          func(ctx context.Context) error { return ctx.Err() },
	}
}

func (m *MemoryStore) nextID(table string) uint {
	m.seq[table]++
	return m.seq[table]
}

// owned mirrors requireOwned for rows already looked up
func owned(scope domain.ClinicScope, entity string, id uint, clinicID uint, found bool) error {
	if !found {
		return domain.NotFoundf(entity)
	}
	if clinicID != scope.ClinicID() {
		return fmt.Errorf("%w: %s %d", domain.ErrCrossTenantViolation, entity, id)
	}
	return nil
}

func (m *MemoryStore) patientOwned(scope domain.ClinicScope, id uint) error {
	p, ok := m.patients[id]
	var clinicID uint
	if ok {
		clinicID = p.ClinicID
	}
	return owned(scope, "patient", id, clinicID, ok)
}

// prescriptionClinic returns the clinic a prescription reaches through its patient
func (m *MemoryStore) prescriptionClinic(id uint) (uint, bool) {
	pr, ok := m.prescriptions[id]
	if !ok {
		return 0, false
	}
	p, ok := m.patients[pr.PatientID]
	if !ok {
		return 0, false
	}
	return p.ClinicID, true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ============================================================
// Clinics
// ============================================================

type memClinics struct{ m *MemoryStore }

func (r memClinics) CreateWithAdmin(ctx context.Context, clinic *models.Clinic, admin *models.User) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.clinics {
		if strings.EqualFold(c.Email, clinic.Email) {
			return fmt.Errorf("%w: clinic email", domain.ErrDuplicateEntry)
		}
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, admin.Email) {
			return fmt.Errorf("%w: user email", domain.ErrDuplicateEntry)
		}
	}

	now := time.Now()
	clinic.ID = m.nextID("clinics")
	clinic.CreatedAt, clinic.UpdatedAt = now, now
	if clinic.Timezone == "" {
		clinic.Timezone = "UTC"
	}
	c := *clinic
	m.clinics[c.ID] = &c

	clinicID := clinic.ID
	admin.ID = m.nextID("users")
	admin.ClinicID = &clinicID
	admin.CreatedAt, admin.UpdatedAt = now, now
	u := *admin
	u.Clinic = nil
	m.users[u.ID] = &u
	admin.Clinic = clinic
	return nil
}

func (r memClinics) GetByID(ctx context.Context, id uint) (*models.Clinic, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.clinics[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r memClinics) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, c := range r.m.clinics {
		if strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r memClinics) List(ctx context.Context) ([]*models.Clinic, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	clinics := make([]*models.Clinic, 0, len(r.m.clinics))
	for _, c := range r.m.clinics {
		cp := *c
		clinics = append(clinics, &cp)
	}
	sort.Slice(clinics, func(i, j int) bool { return clinics[i].ID < clinics[j].ID })
	return clinics, nil
}

// ============================================================
// Users
// ============================================================

type memUsers struct{ m *MemoryStore }

func (r memUsers) withClinic(u *models.User) *models.User {
	cp := *u
	cp.Clinic = nil
	if u.ClinicID != nil {
		if c, ok := r.m.clinics[*u.ClinicID]; ok {
			clinic := *c
			cp.Clinic = &clinic
		}
	}
	return &cp
}

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("%w: user email", domain.ErrDuplicateEntry)
		}
	}
	if user.ClinicID != nil {
		if _, ok := m.clinics[*user.ClinicID]; !ok {
			return fmt.Errorf("%w: unknown clinic", domain.ErrReferentialIntegrity)
		}
	}
	now := time.Now()
	user.ID = m.nextID("users")
	user.CreatedAt, user.UpdatedAt = now, now
	u := *user
	u.Clinic = nil
	m.users[u.ID] = &u
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.withClinic(u), nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, email) {
			return r.withClinic(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memUsers) Update(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Name = user.Name
	u.Password = user.Password
	u.Role = user.Role
	u.IsActive = user.IsActive
	u.ClinicID = user.ClinicID
	u.UpdatedAt = time.Now()
	return nil
}

func (r memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == domain.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r memUsers) ListByClinic(ctx context.Context, scope domain.ClinicScope) ([]*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var users []*models.User
	for _, u := range r.m.users {
		if u.ClinicID != nil && *u.ClinicID == scope.ClinicID() {
			cp := *u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// ============================================================
// Refresh Tokens
// ============================================================

type memTokens struct{ m *MemoryStore }

func (r memTokens) Create(ctx context.Context, token *models.RefreshToken) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	token.ID = r.m.nextID("refresh_tokens")
	token.CreatedAt = time.Now()
	t := *token
	r.m.tokens[t.ID] = &t
	return nil
}

func (r memTokens) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, t := range r.m.tokens {
		if t.TokenHash == tokenHash && t.RevokedAt == nil {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memTokens) revokeWhere(match func(*models.RefreshToken) bool) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := time.Now()
	for _, t := range r.m.tokens {
		if t.RevokedAt == nil && match(t) {
			t.RevokedAt = &now
		}
	}
}

func (r memTokens) Revoke(ctx context.Context, id uint) error {
	r.revokeWhere(func(t *models.RefreshToken) bool { return t.ID == id })
	return nil
}

func (r memTokens) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	r.revokeWhere(func(t *models.RefreshToken) bool { return t.TokenHash == tokenHash })
	return nil
}

func (r memTokens) RevokeAllByUserID(ctx context.Context, userID uint) error {
	r.revokeWhere(func(t *models.RefreshToken) bool { return t.UserID == userID })
	return nil
}

func (r memTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, t := range r.m.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.m.tokens, id)
			n++
		}
	}
	return n, nil
}

// ============================================================
// Patients & Medical Records
// ============================================================

type memPatients struct{ m *MemoryStore }

func (r memPatients) Create(ctx context.Context, scope domain.ClinicScope, patient *models.Patient) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	patient.ID = m.nextID("patients")
	patient.ClinicID = scope.ClinicID()
	patient.CreatedBy = scope.UserID()
	patient.CreatedAt, patient.UpdatedAt = now, now
	p := *patient
	m.patients[p.ID] = &p
	return nil
}

func (r memPatients) GetByID(ctx context.Context, scope domain.ClinicScope, id uint) (*models.Patient, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.patients[id]
	if !ok || p.ClinicID != scope.ClinicID() {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memPatients) List(ctx context.Context, scope domain.ClinicScope, filter PatientFilter) ([]*models.Patient, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var all []*models.Patient
	for _, p := range r.m.patients {
		if p.ClinicID != scope.ClinicID() {
			continue
		}
		if q := filter.Query; q != "" &&
			!containsFold(p.FirstName, q) && !containsFold(p.LastName, q) &&
			!containsFold(p.NIC, q) && !containsFold(p.Phone, q) {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	start, end := pagination.Window(len(all), filter.Offset, filter.Limit)
	return all[start:end], total, nil
}

func (r memPatients) Update(ctx context.Context, scope domain.ClinicScope, patient *models.Patient) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.patientOwned(scope, patient.ID); err != nil {
		return err
	}
	p := m.patients[patient.ID]
	p.FirstName = patient.FirstName
	p.LastName = patient.LastName
	p.NIC = patient.NIC
	p.Gender = patient.Gender
	p.DateOfBirth = patient.DateOfBirth
	p.Phone = patient.Phone
	p.Address = patient.Address
	p.BloodGroup = patient.BloodGroup
	p.Allergies = patient.Allergies
	p.Remarks = patient.Remarks
	p.UpdatedAt = time.Now()
	patient.ClinicID = p.ClinicID
	return nil
}

func (r memPatients) Delete(ctx context.Context, scope domain.ClinicScope, id uint) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok || p.ClinicID != scope.ClinicID() {
		return domain.ErrNotFound
	}
	for _, rec := range m.records {
		if rec.PatientID == id {
			return domain.Referencedf("patient", "medical records")
		}
	}
	for _, pr := range m.prescriptions {
		if pr.PatientID == id {
			return domain.Referencedf("patient", "prescriptions")
		}
	}
	for _, e := range m.entries {
		if e.PatientID == id {
			return domain.Referencedf("patient", "queue entries")
		}
	}
	delete(m.patients, id)
	return nil
}

func (r memPatients) Count(ctx context.Context, scope domain.ClinicScope) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var n int64
	for _, p := range r.m.patients {
		if p.ClinicID == scope.ClinicID() {
			n++
		}
	}
	return n, nil
}

type memRecords struct{ m *MemoryStore }

func (r memRecords) Create(ctx context.Context, scope domain.ClinicScope, record *models.MedicalRecord) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.patientOwned(scope, record.PatientID); err != nil {
		return err
	}
	now := time.Now()
	record.ID = m.nextID("medicals")
	record.CreatedBy = scope.UserID()
	record.CreatedAt, record.UpdatedAt = now, now
	rec := *record
	m.records[rec.ID] = &rec
	return nil
}

func (r memRecords) ListByPatient(ctx context.Context, scope domain.ClinicScope, patientID uint) ([]*models.MedicalRecord, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	records := []*models.MedicalRecord{}
	p, ok := r.m.patients[patientID]
	if !ok || p.ClinicID != scope.ClinicID() {
		return records, nil
	}
	for _, rec := range r.m.records {
		if rec.PatientID == patientID {
			cp := *rec
			records = append(records, &cp)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
	return records, nil
}
