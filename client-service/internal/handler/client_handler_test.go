package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/cqrs"
	"github.com/eaglebank/corebank/shared/models"
	"github.com/gin-gonic/gin"
)

// ---- mock implementations ----

type mockClientCommander struct {
	createFn func(cqrs.CreateClientCommand) (*models.Client, error)
	updateFn func(cqrs.UpdateClientCommand) (*models.Client, error)
	deleteFn func(cqrs.DeleteClientCommand) error
}

func (m *mockClientCommander) CreateClient(_ context.Context, cmd cqrs.CreateClientCommand) (*models.Client, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockClientCommander) UpdateClient(_ context.Context, cmd cqrs.UpdateClientCommand) (*models.Client, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockClientCommander) DeleteClient(_ context.Context, cmd cqrs.DeleteClientCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockClientQuerier struct {
	getFn   func(cqrs.GetClientQuery) (*models.Client, error)
	byKeyFn func(cqrs.GetClientByKeyQuery) (*models.Client, error)
	listFn  func() ([]models.Client, error)
}

func (m *mockClientQuerier) GetClient(_ context.Context, q cqrs.GetClientQuery) (*models.Client, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockClientQuerier) GetClientByKey(_ context.Context, q cqrs.GetClientByKeyQuery) (*models.Client, error) {
	if m.byKeyFn != nil {
		return m.byKeyFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockClientQuerier) ListClients(context.Context) ([]models.Client, error) {
	if m.listFn != nil {
		return m.listFn()
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newClientTestRouter(cmds ClientCommander, qrys ClientQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewClientHandler(cmds, qrys)
	h.Register(r.Group("/v1/clients"), r.Group("/internal/clients"))
	return r
}

func clientDoRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- test data ----

var cTestClient = &models.Client{
	ID: 1, ClientKey: "CLI-1", Name: "Marianela Montalvo", Gender: "F", Age: 28,
	IDNumber: "0102030405", Address: "Amazonas y NNUU", Phone: "097548965", State: models.ClientStateActive,
}

func cValidCreateBody() map[string]interface{} {
	return map[string]interface{}{
		"clientKey": "CLI-1", "name": "Marianela Montalvo", "gender": "F", "age": 28,
		"idNumber": "0102030405", "address": "Amazonas y NNUU", "phone": "097548965",
	}
}

// ---- tests ----

func TestCreateClient(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createFn       func(cqrs.CreateClientCommand) (*models.Client, error)
		expectedStatus int
	}{
		{
			name:           "success - creates client",
			body:           cValidCreateBody(),
			createFn:       func(cmd cqrs.CreateClientCommand) (*models.Client, error) { return cTestClient, nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing id number",
			body:           map[string]interface{}{"name": "Marianela"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - age out of range",
			body:           map[string]interface{}{"name": "Marianela", "idNumber": "1", "age": 400},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "conflict - duplicate id number",
			body: cValidCreateBody(),
			createFn: func(cmd cqrs.CreateClientCommand) (*models.Client, error) {
				return nil, fmt.Errorf("%w: identification exists", apperrors.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newClientTestRouter(&mockClientCommander{createFn: tt.createFn}, &mockClientQuerier{})
			w := clientDoRequest(router, http.MethodPost, "/v1/clients", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestLookupClient(t *testing.T) {
	tests := []struct {
		name           string
		key            string
		byKeyFn        func(cqrs.GetClientByKeyQuery) (*models.Client, error)
		expectedStatus int
	}{
		{
			name: "success - returns snapshot",
			key:  "CLI-1",
			byKeyFn: func(q cqrs.GetClientByKeyQuery) (*models.Client, error) {
				if q.ClientKey != "CLI-1" {
					return nil, fmt.Errorf("unexpected key %s", q.ClientKey)
				}
				return cTestClient, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found",
			key:  "CLI-404",
			byKeyFn: func(q cqrs.GetClientByKeyQuery) (*models.Client, error) {
				return nil, fmt.Errorf("%w: client %s", apperrors.ErrNotFound, q.ClientKey)
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newClientTestRouter(&mockClientCommander{}, &mockClientQuerier{byKeyFn: tt.byKeyFn})
			w := clientDoRequest(router, http.MethodGet, "/internal/clients/"+tt.key, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusOK {
				var got models.CachedClient
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatal(err)
				}
				if got.ClientKey != "CLI-1" || got.Name != cTestClient.Name {
					t.Errorf("unexpected body %+v", got)
				}
			}
		})
	}
}

func TestUpdateClient(t *testing.T) {
	var gotKey string
	cmds := &mockClientCommander{
		updateFn: func(cmd cqrs.UpdateClientCommand) (*models.Client, error) {
			gotKey = cmd.ClientKey
			return cTestClient, nil
		},
	}
	router := newClientTestRouter(cmds, &mockClientQuerier{})
	body := map[string]interface{}{"name": "Marianela", "idNumber": "0102030405", "state": "INACTIVE"}

	w := clientDoRequest(router, http.MethodPut, "/v1/clients/CLI-1", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}
	if gotKey != "CLI-1" {
		t.Errorf("client key from path = %q", gotKey)
	}
}

func TestGetAndDeleteClient(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		url            string
		expectedStatus int
	}{
		{"get - success", http.MethodGet, "/v1/clients/1", http.StatusOK},
		{"get - missing", http.MethodGet, "/v1/clients/2", http.StatusNotFound},
		{"get - bad id", http.MethodGet, "/v1/clients/abc", http.StatusBadRequest},
		{"delete - success", http.MethodDelete, "/v1/clients/1", http.StatusNoContent},
		{"delete - missing", http.MethodDelete, "/v1/clients/2", http.StatusNotFound},
	}

	notFound := fmt.Errorf("%w: client", apperrors.ErrNotFound)
	cmds := &mockClientCommander{
		deleteFn: func(cmd cqrs.DeleteClientCommand) error {
			if cmd.ID == 1 {
				return nil
			}
			return notFound
		},
	}
	qrys := &mockClientQuerier{
		getFn: func(q cqrs.GetClientQuery) (*models.Client, error) {
			if q.ID == 1 {
				return cTestClient, nil
			}
			return nil, notFound
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newClientTestRouter(cmds, qrys)
			w := clientDoRequest(router, tt.method, tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestListClients(t *testing.T) {
	qrys := &mockClientQuerier{listFn: func() ([]models.Client, error) { return []models.Client{*cTestClient}, nil }}
	router := newClientTestRouter(&mockClientCommander{}, qrys)

	w := clientDoRequest(router, http.MethodGet, "/v1/clients", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []models.Client
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || len(got) != 1 {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
