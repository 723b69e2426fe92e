package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type apiClient struct {
	t   *testing.T
	app *fiber.App
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	cfg := &config.Config{
		AppMode:         "dev",
		DefaultTimezone: "UTC",
		Database:        config.DatabaseConfig{Driver: config.DriverMemory},
		JWT: config.JWTConfig{
			Secret:           "routes-access",
			RefreshSecret:    "routes-refresh",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	middleware.Setup(app, cfg)
	Setup(app, repositories.NewMemoryRepositories(), cfg)
	return &apiClient{t: t, app: app}
}

func (a *apiClient) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	if len(raw) > 0 {
		require.NoError(a.t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

type idOnly struct {
	ID uint `json:"id"`
}

// registerClinic signs up a clinic and returns the admin's access token
func (a *apiClient) registerClinic(name string) string {
	a.t.Helper()
	status, env := a.do("POST", "/api/v1/auth/register-clinic", "", map[string]string{
		"clinic_name":  name,
		"clinic_email": name + "@clinic.test",
		"admin_name":   name + " admin",
		"admin_email":  name + "@staff.test",
		"password":     "clinic2024",
	})
	require.Equal(a.t, fiber.StatusCreated, status, env.Error)
	auth := decode[struct {
		AccessToken string `json:"access_token"`
	}](a.t, env)
	require.NotEmpty(a.t, auth.AccessToken)
	return auth.AccessToken
}

func (a *apiClient) createPatient(token, firstName string) uint {
	a.t.Helper()
	status, env := a.do("POST", "/api/v1/patients", token, map[string]string{"first_name": firstName})
	require.Equal(a.t, fiber.StatusCreated, status, env.Error)
	return decode[idOnly](a.t, env).ID
}

func TestAPI_HealthAndAuthRequired(t *testing.T) {
	api := newAPI(t)

	status, _ := api.do("GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, env := api.do("GET", "/api/v1/patients", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = api.do("GET", "/api/v1/patients", "garbage", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAPI_QueueDay(t *testing.T) {
	api := newAPI(t)
	token := api.registerClinic("lakeside")
	ann := api.createPatient(token, "Ann")
	bob := api.createPatient(token, "Bob")

	status, env := api.do("POST", "/api/v1/queue/entries", token, map[string]uint{"patient_id": ann})
	assert.Equal(t, fiber.StatusConflict, status, "no open queue yet")

	status, env = api.do("POST", "/api/v1/queue", token, nil)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	status, _ = api.do("POST", "/api/v1/queue", token, nil)
	assert.Equal(t, fiber.StatusConflict, status, "already open")

	for i, id := range []uint{ann, bob} {
		status, env = api.do("POST", "/api/v1/queue/entries", token, map[string]uint{"patient_id": id})
		require.Equal(t, fiber.StatusCreated, status, env.Error)
		entry := decode[struct {
			Position int `json:"position"`
		}](t, env)
		assert.Equal(t, i+1, entry.Position)
	}

	status, env = api.do("GET", "/api/v1/queue", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	view := decode[struct {
		Queue struct {
			Status string `json:"status"`
		} `json:"queue"`
		Waiting int `json:"waiting"`
	}](t, env)
	assert.Equal(t, "ACTIVE", view.Queue.Status)
	assert.Equal(t, 2, view.Waiting)

	status, env = api.do("POST", "/api/v1/queue/advance", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, ann, decode[struct {
		PatientID uint `json:"patient_id"`
	}](t, env).PatientID)

	status, _ = api.do("POST", "/api/v1/queue/close", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = api.do("POST", "/api/v1/queue/entries", token, map[string]uint{"patient_id": bob})
	assert.Equal(t, fiber.StatusConflict, status, "closed queue")

	// the closed queue stays readable as history
	status, env = api.do("GET", "/api/v1/queue/history", token, nil)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	history := decode[[]struct {
		Queue struct {
			Status string `json:"status"`
		} `json:"queue"`
		Entries []struct {
			Status string `json:"status"`
		} `json:"entries"`
		Waiting int `json:"waiting"`
	}](t, env)
	require.Len(t, history, 1)
	assert.Equal(t, "CLOSED", history[0].Queue.Status)
	assert.Len(t, history[0].Entries, 2)
	assert.Equal(t, 1, history[0].Waiting)

	status, _ = api.do("GET", "/api/v1/queue/history?date=yesterday", token, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestAPI_TenantIsolation(t *testing.T) {
	api := newAPI(t)
	alpha := api.registerClinic("alpha")
	beta := api.registerClinic("beta")
	patient := api.createPatient(alpha, "Ann")

	status, _ := api.do("GET", fmt.Sprintf("/api/v1/patients/%d", patient), beta, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = api.do("GET", fmt.Sprintf("/api/v1/patients/%d", patient), alpha, nil)
	assert.Equal(t, fiber.StatusOK, status)

	// a clinic_id in the body is ignored
	status, env := api.do("POST", "/api/v1/patients", beta, map[string]interface{}{"first_name": "Bob", "clinic_id": 1})
	require.Equal(t, fiber.StatusCreated, status)
	bob := decode[struct {
		ID       uint `json:"id"`
		ClinicID uint `json:"clinic_id"`
	}](t, env)
	assert.NotEqual(t, uint(1), bob.ClinicID)
	status, _ = api.do("GET", fmt.Sprintf("/api/v1/patients/%d", bob.ID), alpha, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	// referencing another clinic's patient is rejected outright
	status, _ = api.do("POST", "/api/v1/queue", alpha, nil)
	require.Equal(t, fiber.StatusCreated, status)
	status, _ = api.do("POST", "/api/v1/queue/entries", alpha, map[string]uint{"patient_id": bob.ID})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = api.do("GET", "/api/v1/patients", beta, nil)
	require.Equal(t, fiber.StatusOK, status)
	list := decode[struct {
		Patients []idOnly `json:"patients"`
	}](t, env)
	require.Len(t, list.Patients, 1)
	assert.Equal(t, bob.ID, list.Patients[0].ID)
}

func TestAPI_ErrorMapping(t *testing.T) {
	api := newAPI(t)
	token := api.registerClinic("errors")

	status, _ := api.do("POST", "/api/v1/patients", token, `{"first_name":`)
	assert.Equal(t, fiber.StatusBadRequest, status, "malformed body")

	status, _ = api.do("POST", "/api/v1/patients", token, map[string]string{"last_name": "Only"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status, "missing first name")

	status, _ = api.do("GET", "/api/v1/patients/abc", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status, "bad id")

	status, _ = api.do("GET", "/api/v1/patients/9999", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAPI_PrescriptionAndDashboard(t *testing.T) {
	api := newAPI(t)
	token := api.registerClinic("pharmacy")
	patient := api.createPatient(token, "Ann")

	status, env := api.do("GET", "/api/v1/drug-types", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	types := decode[[]idOnly](t, env)
	require.NotEmpty(t, types, "catalog is seeded on registration")

	status, env = api.do("POST", "/api/v1/drugs", token, map[string]interface{}{
		"drug_type_id": types[0].ID,
		"name":         "Paracetamol",
		"unit_price":   "2.50",
		"quantity":     "10",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	drug := decode[idOnly](t, env).ID

	status, env = api.do("POST", "/api/v1/prescriptions", token, map[string]interface{}{
		"patient_id": patient,
		"items":      []map[string]interface{}{{"drug_id": drug, "quantity": "4"}},
	})
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	prescription := decode[idOnly](t, env).ID

	status, env = api.do("POST", fmt.Sprintf("/api/v1/prescriptions/%d/issue", prescription), token, map[string]string{"amount": "10.00"})
	require.Equal(t, fiber.StatusOK, status, env.Error)

	status, _ = api.do("DELETE", fmt.Sprintf("/api/v1/drugs/%d", drug), token, nil)
	assert.Equal(t, fiber.StatusConflict, status, "prescribed drugs cannot be deleted")

	status, env = api.do("GET", "/api/v1/dashboard/metrics", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	metrics := decode[struct {
		IssuedCount   int64  `json:"issued_count"`
		TotalPayments string `json:"total_payments"`
	}](t, env)
	assert.Equal(t, int64(1), metrics.IssuedCount)
	assert.Equal(t, "10", metrics.TotalPayments)
}

func TestAPI_AdminOnlyAccounts(t *testing.T) {
	api := newAPI(t)
	admin := api.registerClinic("staffing")

	status, env := api.do("POST", "/api/v1/settings/accounts", admin, map[string]string{
		"name":     "Nurse",
		"email":    "nurse@staffing.test",
		"password": "nurse2024",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Error)

	status, env = api.do("POST", "/api/v1/auth/login", "", map[string]string{
		"email":    "nurse@staffing.test",
		"password": "nurse2024",
	})
	require.Equal(t, fiber.StatusOK, status, env.Error)
	nurse := decode[struct {
		AccessToken string `json:"access_token"`
	}](t, env).AccessToken

	status, _ = api.do("POST", "/api/v1/settings/accounts", nurse, map[string]string{
		"name":     "Intruder",
		"email":    "x@staffing.test",
		"password": "intrude2024",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = api.do("GET", "/api/v1/settings/accounts", nurse, nil)
	assert.Equal(t, fiber.StatusOK, status)
}
