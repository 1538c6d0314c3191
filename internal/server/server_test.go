package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/omnifs/omnifs/internal/circuit"
	"github.com/omnifs/omnifs/internal/container"
	"github.com/omnifs/omnifs/internal/engine"
	"github.com/omnifs/omnifs/internal/logging"
	"github.com/omnifs/omnifs/internal/metrics"
	"github.com/omnifs/omnifs/pkg/health"
	"github.com/omnifs/omnifs/pkg/status"
	"github.com/stretchr/testify/require"
)

func testConfig() container.Config {
	return container.Config{
		TotalSize:         1048576,
		BlockSize:         4096,
		MaxFiles:          64,
		MaxFilenameLength: 255,
		MaxUsers:          16,
		AdminUsername:     "admin",
		AdminPassword:     "admin",
		RequireAuth:       true,
		Port:              8080,
		MaxConnections:    10,
		QueueTimeout:      30,
	}
}

// testHarness wires a Server around a freshly formatted engine and serves it
// on a loopback listener for the duration of the test.
type testHarness struct {
	addr string
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fs.omni")
	eng, err := engine.Format(path, testConfig())
	require.Nil(t, err)

	log := logging.Default()
	healthTracker := health.NewTracker(health.DefaultConfig())
	healthTracker.Register("container")
	statusTracker := status.NewTracker(status.Config{HealthTracker: healthTracker})
	breaker := circuit.New("container", 5, 30*time.Second)

	srv := New(eng, log, metrics.NewCollector(), healthTracker, statusTracker, breaker)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go srv.Serve(ln)
	t.Cleanup(func() { ln.Close() })

	return &testHarness{addr: ln.Addr().String()}
}

// call opens a fresh connection, sends one request, and returns the decoded
// response. Every OmniFS request is one connection, matching the wire
// protocol's per-request socket lifecycle.
func (h *testHarness) call(t *testing.T, op, sessionID string, params map[string]any) map[string]any {
	t.Helper()

	conn, err := net.Dial("tcp", h.addr)
	require.NoError(t, err)
	defer conn.Close()

	req := map[string]any{
		"operation":  op,
		"session_id": sessionID,
		"request_id": fmt.Sprintf("req-%s", op),
		"parameters": params,
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	_, err = conn.Write(append(data, '\n'))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	return resp
}

func (h *testHarness) login(t *testing.T, username, password string) map[string]any {
	t.Helper()
	return h.call(t, "user_login", "", map[string]any{"username": username, "password": password})
}

// Scenario 1: format then init exposes exactly one admin user and an empty root.
func TestScenarioFormatExposesAdminAndEmptyRoot(t *testing.T) {
	h := newTestHarness(t)

	resp := h.login(t, "admin", "admin")
	require.Equal(t, "success", resp["status"])
	sessionID, _ := resp["data"].(map[string]any)["session_id"].(string)
	require.NotEmpty(t, sessionID)

	list := h.call(t, "user_list", sessionID, nil)
	require.Equal(t, "success", list["status"])
	users, ok := list["data"].([]any)
	require.True(t, ok)
	require.Len(t, users, 1)
	entry := users[0].(map[string]any)
	require.Equal(t, "admin", entry["username"])
	require.Equal(t, "admin", entry["role"])
	require.EqualValues(t, 1, entry["is_active"])

	dirs := h.call(t, "dir_list", sessionID, map[string]any{"path": "/"})
	require.Equal(t, "success", dirs["status"])
	require.Empty(t, dirs["data"])
}

// Scenario 2: login success/failure and the authentication gate.
func TestScenarioLoginAndSessionGate(t *testing.T) {
	h := newTestHarness(t)

	ok := h.login(t, "admin", "admin")
	require.Equal(t, "success", ok["status"])

	bad := h.login(t, "admin", "wrong")
	require.Equal(t, "error", bad["status"])
	require.EqualValues(t, 5, bad["error_code"]) // PermissionDenied

	noSession := h.call(t, "dir_list", "", map[string]any{"path": "/"})
	require.Equal(t, "error", noSession["status"])
	require.EqualValues(t, 9, noSession["error_code"]) // InvalidSession
}

// Scenario 3: a duplicate directory create is rejected and root cannot be removed.
func TestScenarioDirCreateDeleteRoot(t *testing.T) {
	h := newTestHarness(t)
	sessionID := h.loginAdmin(t)

	first := h.call(t, "dir_create", sessionID, map[string]any{"path": "/a"})
	require.Equal(t, "success", first["status"])

	second := h.call(t, "dir_create", sessionID, map[string]any{"path": "/a"})
	require.Equal(t, "error", second["status"])
	require.EqualValues(t, 4, second["error_code"]) // FileExists

	deleted := h.call(t, "dir_delete", sessionID, map[string]any{"path": "/a"})
	require.Equal(t, "success", deleted["status"])

	rootDelete := h.call(t, "dir_delete", sessionID, map[string]any{"path": "/"})
	require.Equal(t, "error", rootDelete["status"])
	require.EqualValues(t, 6, rootDelete["error_code"]) // InvalidOperation
}

// Scenario 4: file_create persists data that file_read returns back.
func TestScenarioFileCreateReadMetadata(t *testing.T) {
	h := newTestHarness(t)
	sessionID := h.loginAdmin(t)

	created := h.call(t, "file_create", sessionID, map[string]any{"path": "/f", "data": "hello", "size": float64(5)})
	require.Equal(t, "success", created["status"])

	read := h.call(t, "file_read", sessionID, map[string]any{"path": "/f"})
	require.Equal(t, "success", read["status"])
	require.Equal(t, "hello", read["data"].(map[string]any)["content"])

	meta := h.call(t, "get_metadata", sessionID, map[string]any{"path": "/f"})
	require.Equal(t, "success", meta["status"])
	require.EqualValues(t, 1, meta["data"].(map[string]any)["blocks_used"])
}

// Scenario 6: deleting a non-empty directory fails until its child is gone.
func TestScenarioDirectoryNotEmpty(t *testing.T) {
	h := newTestHarness(t)
	sessionID := h.loginAdmin(t)

	require.Equal(t, "success", h.call(t, "dir_create", sessionID, map[string]any{"path": "/d"})["status"])
	require.Equal(t, "success", h.call(t, "file_create", sessionID, map[string]any{"path": "/d/x", "data": "", "size": float64(0)})["status"])

	notEmpty := h.call(t, "dir_delete", sessionID, map[string]any{"path": "/d"})
	require.Equal(t, "error", notEmpty["status"])
	require.EqualValues(t, 7, notEmpty["error_code"]) // DirectoryNotEmpty

	require.Equal(t, "success", h.call(t, "file_delete", sessionID, map[string]any{"path": "/d/x"})["status"])
	require.Equal(t, "success", h.call(t, "dir_delete", sessionID, map[string]any{"path": "/d"})["status"])
}

// get_error_message is reachable without a session and returns a plain string.
func TestGetErrorMessageIsSessionExempt(t *testing.T) {
	h := newTestHarness(t)

	resp := h.call(t, "get_error_message", "", map[string]any{"error_code": float64(3)})
	require.Equal(t, "success", resp["status"])
	require.IsType(t, "", resp["data"])
}

// A request whose JSON cannot be parsed gets a fixed error object and the
// connection is closed without ever reaching the queue.
func TestMalformedRequestIsRejected(t *testing.T) {
	h := newTestHarness(t)

	conn, err := net.Dial("tcp", h.addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not json at all\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.Equal(t, "error", resp["status"])
}

func (h *testHarness) loginAdmin(t *testing.T) string {
	t.Helper()
	resp := h.login(t, "admin", "admin")
	require.Equal(t, "success", resp["status"])
	return resp["data"].(map[string]any)["session_id"].(string)
}
