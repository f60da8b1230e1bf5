package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medrex/clinic-portal/internal/auth"
	"github.com/medrex/clinic-portal/pkg/logger"
	"github.com/medrex/clinic-portal/pkg/types"
)

var (
	_ auth.AuthClient       = (*Client)(nil)
	_ auth.PermissionClient = (*Client)(nil)
	_ auth.TokenSink        = (*Client)(nil)
)

// fakeBackend is a minimal clinic API
type fakeBackend struct {
	mu          sync.Mutex
	authHeaders []string
	permissions map[string]interface{}
	logoutCode  int
}

func (f *fakeBackend) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/login", f.login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", f.logout).Methods(http.MethodPost)
	r.HandleFunc("/api/permissions/user/{userId}", f.userPermissions).Methods(http.MethodGet)
	return r
}

func (f *fakeBackend) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
}

func (f *fakeBackend) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authHeaders[len(f.authHeaders)-1]
}

func (f *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req["email"] != "nurse@clinic.test" || req["password"] != "s3cret" {
		http.Error(w, `{"message":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"token":       "tok-" + req["organizationId"],
		"userId":      "u-42",
		"email":       req["email"],
		"role":        "NURSE",
		"displayName": "Nurse Joy",
	})
}

func (f *fakeBackend) logout(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if f.logoutCode != 0 {
		w.WriteHeader(f.logoutCode)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeBackend) userPermissions(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	perms, ok := f.permissions[mux.Vars(r)["userId"]]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(perms)
}

func newTestClient(t *testing.T, fake *fakeBackend) *Client {
	t.Helper()
	server := httptest.NewServer(fake.router())
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL+"/api/", 5*time.Second, logger.Discard())
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not a url", time.Second, logger.Discard())
	assert.Error(t, err)
}

func TestClient_Login(t *testing.T) {
	fake := &fakeBackend{}
	client := newTestClient(t, fake)

	result, err := client.Login(context.Background(), types.Credentials{
		Email: "nurse@clinic.test", Password: "s3cret", OrganizationID: "org-1",
	})
	require.NoError(t, err)

	assert.Equal(t, &types.LoginResult{
		Token: "tok-org-1", UserID: "u-42", Email: "nurse@clinic.test", Role: "NURSE", DisplayName: "Nurse Joy",
	}, result)
	assert.Empty(t, fake.lastAuth())
}

func TestClient_LoginRejected(t *testing.T) {
	client := newTestClient(t, &fakeBackend{})

	_, err := client.Login(context.Background(), types.Credentials{Email: "nurse@clinic.test", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeAuthentication))
}

func TestClient_LoginUnreachable(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1/api", 500*time.Millisecond, logger.Discard())
	require.NoError(t, err)

	_, err = client.Login(context.Background(), types.Credentials{Email: "a@b", Password: "c"})
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeExternal))
}

func TestClient_TokenPropagation(t *testing.T) {
	fake := &fakeBackend{permissions: map[string]interface{}{
		"u-42": []string{"VIEW_PATIENTS", "APPOINTMENT_MANAGEMENT"},
	}}
	client := newTestClient(t, fake)

	_, err := client.GetUserPermissions(context.Background(), "u-42")
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeAuthorization))

	client.SetToken("t1")
	assert.True(t, client.HasToken())
	perms, err := client.GetUserPermissions(context.Background(), "u-42")
	require.NoError(t, err)
	assert.Equal(t, []string{"VIEW_PATIENTS", "APPOINTMENT_MANAGEMENT"}, perms)
	assert.Equal(t, "Bearer t1", fake.lastAuth())

	client.SetToken("t2")
	require.NoError(t, client.Logout(context.Background()))
	assert.Equal(t, "Bearer t2", fake.lastAuth())

	client.SetToken("")
	assert.False(t, client.HasToken())
	require.NoError(t, client.Logout(context.Background()))
	assert.Empty(t, fake.lastAuth())
}

func TestClient_PermissionObjects(t *testing.T) {
	fake := &fakeBackend{permissions: map[string]interface{}{
		"u-7": []map[string]string{{"name": "BILLING_MANAGEMENT"}, {"name": "VIEW_BILLING"}},
	}}
	client := newTestClient(t, fake)
	client.SetToken("t1")

	perms, err := client.GetUserPermissions(context.Background(), "u-7")
	require.NoError(t, err)
	assert.Equal(t, []string{"BILLING_MANAGEMENT", "VIEW_BILLING"}, perms)
}

func TestClient_PermissionErrors(t *testing.T) {
	fake := &fakeBackend{permissions: map[string]interface{}{
		"u-bad": []int{1, 2},
	}}
	client := newTestClient(t, fake)
	client.SetToken("t1")

	_, err := client.GetUserPermissions(context.Background(), "u-missing")
	assert.True(t, types.IsErrorType(err, types.ErrorTypeNotFound))

	_, err = client.GetUserPermissions(context.Background(), "u-bad")
	assert.True(t, types.IsErrorType(err, types.ErrorTypeExternal))

	_, err = client.GetUserPermissions(context.Background(), "")
	assert.True(t, types.IsErrorType(err, types.ErrorTypeValidation))
}

func TestClient_LogoutFailure(t *testing.T) {
	client := newTestClient(t, &fakeBackend{logoutCode: http.StatusBadGateway})
	client.SetToken("t1")

	err := client.Logout(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.ErrorTypeExternal))
}
