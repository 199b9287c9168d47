package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/MrKekPlag/serv2/internal/app"
	"github.com/MrKekPlag/serv2/internal/config"
	"github.com/MrKekPlag/serv2/internal/domain"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	cfg := config.Default()
	a, err := app.Build(afero.NewMemMapFs(), cfg)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	handler, err := New(Config{
		Engine: a.Engine,
		Users:  a.Users,
		Auth:   AuthConfig{JWTSecret: "test-secret"},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func registerUser(t *testing.T, srv *testServer, username, role string) map[string]string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/auth/register", map[string]string{
		"firstName": "Test",
		"lastName":  "User",
		"username":  username,
		"password":  "secret",
		"role":      role,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("register status %d: %s", res.StatusCode, string(data))
	}
	var tok TokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	if tok.AccessToken == "" {
		t.Fatal("empty access token")
	}
	return map[string]string{"Authorization": "Bearer " + tok.AccessToken}
}

func TestAuthGuard(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/projects", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/projects", nil, map[string]string{
		"Authorization": "Bearer not-a-real-token",
	})
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("bad token status %d: %s", res.StatusCode, string(data))
	}
}

func TestStatusesArePublic(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/statuses.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("statuses status %d: %s", res.StatusCode, string(data))
	}
	var statuses []domain.Status
	if err := json.Unmarshal(data, &statuses); err != nil {
		t.Fatalf("unmarshal statuses: %v", err)
	}
	if len(statuses) != 6 {
		t.Fatalf("got %d statuses, want 6", len(statuses))
	}
}

func TestLoginUnknownUser(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/auth/login", map[string]string{
		"username": "nobody",
		"password": "secret",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown user status %d: %s", res.StatusCode, string(data))
	}
	if !bytes.Contains(data, []byte("cannot find user")) {
		t.Fatalf("unexpected body: %s", data)
	}
}

func TestProjectLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	auth := registerUser(t, srv, "ivan", "")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/projects", map[string]any{
		"name":     "Alpha",
		"id":       "p-1",
		"deadline": "2024-06-01",
		"goals":    []map[string]any{{"name": "design", "deadline": ""}},
	}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Project
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	if created.Rating != 0 || created.CustomerRating != domain.CustomerRatingNone {
		t.Fatalf("defaults not applied: %+v", created)
	}
	if created.Goals[0].Deadline != "2024-06-01" {
		t.Fatalf("goal deadline = %q", created.Goals[0].Deadline)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/projects", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var projects []domain.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		t.Fatalf("unmarshal projects: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != "p-1" {
		t.Fatalf("projects = %+v", projects)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/projects/p-1/status", map[string]string{
		"status":   "Выполнено",
		"type":     "projects",
		"goalName": "design",
	}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("goal status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/projects/p-1/rating", map[string]any{
		"ratingType": "manager",
		"rating":     "not a number",
		"type":       "projects",
	}, auth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-numeric rating status %d: %s", res.StatusCode, string(data))
	}

	// Delete requires an explicit category.
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/projects/p-1", nil, auth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("delete without type status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/projects/p-1?type=projects", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/projects/p-1?type=projects", nil, auth)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status %d: %s", res.StatusCode, string(data))
	}
}

func TestGoalStatusWithoutGoalNameIsNoOp(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	auth := registerUser(t, srv, "ivan", "")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/projects", map[string]any{
		"name":  "Alpha",
		"id":    "p-1",
		"goals": []map[string]any{{"name": "design"}},
	}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}

	// The legacy client sometimes omits goalName; the update must still
	// succeed without touching any goal.
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/projects/p-1/status", map[string]string{
		"status": "Выполнено",
		"type":   "projects",
	}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status without goalName should succeed, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/projects", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var projects []domain.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		t.Fatalf("unmarshal projects: %v", err)
	}
	if projects[0].Goals[0].Status != "" {
		t.Fatalf("goal status should be untouched, got %q", projects[0].Goals[0].Status)
	}
}

func TestOpenAPIConcurrentFirstFetch(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := client.Get(srv.URL + "/openapi.json")
			if err != nil {
				errs <- err
				return
			}
			defer res.Body.Close()
			data, err := io.ReadAll(res.Body)
			if err != nil {
				errs <- err
				return
			}
			if res.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("status %d", res.StatusCode)
				return
			}
			var doc map[string]any
			if err := json.Unmarshal(data, &doc); err != nil {
				errs <- fmt.Errorf("invalid document: %w", err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent openapi fetch: %v", err)
	}
}

func TestDeleteUserRequiresAdmin(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	userAuth := registerUser(t, srv, "ivan", "")
	adminAuth := registerUser(t, srv, "boss", "admin")

	res, data := doJSON(t, client, http.MethodDelete, srv.URL+"/auth/delete", map[string]string{
		"username": "ivan",
	}, userAuth)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("non-admin delete status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/auth/delete", map[string]string{
		"username": "ivan",
	}, adminAuth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("admin delete status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/auth/users", nil, adminAuth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list users status %d: %s", res.StatusCode, string(data))
	}
	var summaries []UserSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		t.Fatalf("unmarshal users: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("users = %+v", summaries)
	}
}

func TestCreateProjectFile(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	auth := registerUser(t, srv, "ivan", "")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/createProjectFile", map[string]string{
		"type": "generation",
	}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("createProjectFile status %d: %s", res.StatusCode, string(data))
	}
	var msg MessageResponse
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	if msg.Message != "File created successfully" {
		t.Fatalf("message = %q", msg.Message)
	}
}
