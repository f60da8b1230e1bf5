package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	configPath   string
	passwordFile string
	logouts      atomic.Int32
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := &cliEnv{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token": "t1", "userId": "u1", "email": body["email"], "role": "RECEPTIONIST", "displayName": "Front Desk",
		})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		env.logouts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/api/permissions/user/u1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]string{"APPOINTMENT_MANAGEMENT", "VIEW_PATIENTS", "VIEW_BILLING"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	env.configPath = filepath.Join(dir, "clinicctl.yaml")
	require.NoError(t, os.WriteFile(env.configPath, []byte(fmt.Sprintf(`
backend:
  base_url: %s/api
  timeout: 5
storage:
  driver: file
  path: %s
log_level: error
`, server.URL, filepath.Join(dir, "session.json"))), 0600))

	env.passwordFile = filepath.Join(dir, "password")
	require.NoError(t, os.WriteFile(env.passwordFile, []byte("s3cret\n"), 0600))
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr, _, err := e.runWithOptions(t, args...)
	return stdout, stderr, err
}

func (e *cliEnv) runWithOptions(t *testing.T, args ...string) (string, string, *rootOptions, error) {
	t.Helper()
	opts := &rootOptions{logOutput: io.Discard}
	root := newRootCommand(opts)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := run(context.Background(), root, opts)
	return stdout.String(), stderr.String(), opts, err
}

func TestCLI_SessionFlow(t *testing.T) {
	env := newCLIEnv(t)

	out, _, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	out, _, err = env.run(t, "menu")
	require.NoError(t, err)
	assert.Contains(t, out, "dashboard")
	assert.NotContains(t, out, "appointments")

	out, _, err = env.run(t, "login", "--email", "desk@clinic.test", "--organization", "org-1", "--password-file", env.passwordFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Front Desk (receptionist)")

	out, _, err = env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "u1")
	assert.Contains(t, out, "org-1")

	out, _, err = env.run(t, "-o", "json", "menu")
	require.NoError(t, err)
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item["id"].(string)
	}
	assert.Equal(t, []string{"dashboard", "patients", "appointments", "billing"}, ids)

	out, _, err = env.run(t, "permissions")
	require.NoError(t, err)
	assert.Contains(t, out, "APPOINTMENT: APPOINTMENT_MANAGEMENT")
	assert.Contains(t, out, "VIEW: VIEW_BILLING, VIEW_PATIENTS")

	out, _, err = env.run(t, "check", "VIEW_PATIENTS", "SYSTEM_SETTINGS")
	require.NoError(t, err)
	assert.Contains(t, out, "ALLOW")

	out, stderr, err := env.run(t, "check", "--all", "VIEW_PATIENTS", "SYSTEM_SETTINGS")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Contains(t, out, "DENY_REDIRECT")
	assert.Contains(t, stderr, "/dashboard")

	out, _, err = env.run(t, "check", "--inline", "SYSTEM_SETTINGS")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Contains(t, out, "DENY_INLINE")

	out, stderr, err = env.run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.Contains(t, stderr, "/login")
	assert.Equal(t, int32(1), env.logouts.Load())

	out, _, err = env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	out, stderr, err = env.run(t, "check")
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Contains(t, out, "DENY_REDIRECT")
	assert.Contains(t, stderr, "/login")
}

func TestCLI_LoginFailure(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(env.passwordFile, []byte("wrong"), 0600))

	_, _, err := env.run(t, "login", "--email", "desk@clinic.test", "--password-file", env.passwordFile)
	assert.ErrorIs(t, err, ErrLoginFailed)

	out, _, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestCLI_ClosesAppWhenCommandFails(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.WriteFile(env.passwordFile, []byte("wrong"), 0600))

	_, _, opts, err := env.runWithOptions(t, "login", "--email", "desk@clinic.test", "--password-file", env.passwordFile)
	assert.ErrorIs(t, err, ErrLoginFailed)
	require.NotNil(t, opts.app)
	assert.True(t, opts.app.Lifecycle.Closed())

	_, _, opts, err = env.runWithOptions(t, "check", "PATIENT_MANAGEMENT")
	assert.ErrorIs(t, err, ErrAccessDenied)
	require.NotNil(t, opts.app)
	assert.True(t, opts.app.Lifecycle.Closed())

	_, _, opts, err = env.runWithOptions(t, "status")
	require.NoError(t, err)
	assert.True(t, opts.app.Lifecycle.Closed())
}

func TestCLI_LoginRequiresEmail(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run(t, "login", "--password-file", env.passwordFile)
	assert.Error(t, err)
}

func TestCLI_UnknownOutput(t *testing.T) {
	env := newCLIEnv(t)

	_, _, err := env.run(t, "-o", "yaml", "status")
	assert.Error(t, err)
}
