package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"dealflow/internal/config"
	"dealflow/internal/db"
	"dealflow/internal/domain"
	"dealflow/internal/engine"
	"dealflow/internal/migrate"
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
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	if err := e.Seed(context.Background()); err != nil {
		t.Fatalf("seed catalogs: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth:     AuthConfig{JWTSecret: "test-secret", AllowLegacyActorHeader: true},
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
			conn.Close()
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

func actorHeaders(actor string) map[string]string {
	return map[string]string{"X-Actor-Id": actor}
}

func TestHealthIsOpen(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestMissingCredentialsRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/contacts", map[string]any{
		"first_name": "Ana", "last_name": "Perez",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
}

func TestDevLoginBearerToken(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/auth/dev/login", map[string]any{
		"actor_id": "dev-1",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login: %d %s", res.StatusCode, string(data))
	}
	var login DevLoginResponse
	if err := json.Unmarshal(data, &login); err != nil || login.Token == "" {
		t.Fatalf("expected token: %v %s", err, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/contacts", map[string]any{
		"first_name": "Ana", "last_name": "Perez",
	}, map[string]string{"Authorization": "Bearer " + login.Token})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create contact with token: %d %s", res.StatusCode, string(data))
	}
}

func TestProviderPipelineOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	h := actorHeaders("tester")

	for _, seed := range []struct {
		path string
		body map[string]any
	}{
		{"/v1/contacts", map[string]any{"id": "owner-1", "first_name": "Ana", "last_name": "Perez"}},
		{"/v1/agents", map[string]any{"id": "agent-1", "first_name": "Juan", "last_name": "Rios"}},
		{"/v1/properties", map[string]any{"id": "prop-1", "name": "Av. Libertador 1200"}},
	} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+seed.path, seed.body, h)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("seed %s: %d %s", seed.path, res.StatusCode, string(data))
		}
	}

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/provider-intentions", map[string]any{
		"owner_id": "owner-1", "agent_id": "agent-1", "property_id": "prop-1", "operation_type": "sale",
	}, h)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create intention: %d %s", res.StatusCode, string(data))
	}
	var intention domain.ProviderIntention
	if err := json.Unmarshal(data, &intention); err != nil {
		t.Fatalf("unmarshal intention: %v", err)
	}

	// promoting before the valuation walks into a closed transition
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/provider-intentions/"+intention.ID+"/promote", map[string]any{
		"gross_commission_pct": 5,
	}, h)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition code: %v %s", err, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/provider-intentions/"+intention.ID+"/valuation", map[string]any{
		"amount": 950000, "currency": "USD",
	}, h)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("valuation: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/provider-intentions/"+intention.ID+"/promote", map[string]any{
		"gross_commission_pct": 5,
	}, h)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("promote: %d %s", res.StatusCode, string(data))
	}
	var opp domain.ProviderOpportunity
	if err := json.Unmarshal(data, &opp); err != nil {
		t.Fatalf("unmarshal opportunity: %v", err)
	}
	if opp.State != domain.OpportunityValidating {
		t.Fatalf("expected validating, got %s", opp.State)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/provider-opportunities/"+opp.ID+"/validation", nil, h)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get validation: %d %s", res.StatusCode, string(data))
	}
	var val domain.Validation
	if err := json.Unmarshal(data, &val); err != nil || val.State != domain.ValidationPreparing {
		t.Fatalf("expected preparing validation: %v %s", err, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/validations/"+val.ID+"/required-documents", nil, h)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("required documents: %d %s", res.StatusCode, string(data))
	}
	var required []domain.RequiredDocumentStatus
	if err := json.Unmarshal(data, &required); err != nil || len(required) == 0 {
		t.Fatalf("expected required document rows: %v %s", err, string(data))
	}
	for _, r := range required {
		if r.Status != "missing" {
			t.Fatalf("expected missing status before uploads, got %s", r.Status)
		}
	}
}

func TestGuardErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	h := actorHeaders("tester")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/provider-intentions/missing", nil, h)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error.Code != "not_found" {
		t.Fatalf("expected not_found envelope: %v %s", err, string(data))
	}
}

func TestTransitionLogPagination(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	h := actorHeaders("tester")

	for _, seed := range []struct {
		path string
		body map[string]any
	}{
		{"/v1/contacts", map[string]any{"id": "buyer-1", "first_name": "Ana", "last_name": "Perez"}},
		{"/v1/agents", map[string]any{"id": "agent-1", "first_name": "Juan", "last_name": "Rios"}},
	} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+seed.path, seed.body, h)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("seed %s: %d %s", seed.path, res.StatusCode, string(data))
		}
	}
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/seeker-intentions", map[string]any{
		"contact_id": "buyer-1", "agent_id": "agent-1", "operation_type": "sale",
	}, h)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create seeker intention: %d %s", res.StatusCode, string(data))
	}
	var si domain.SeekerIntention
	if err := json.Unmarshal(data, &si); err != nil {
		t.Fatalf("unmarshal intention: %v", err)
	}
	// three state-machine moves, three log rows
	for _, step := range []string{"activate", "mandate"} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/seeker-intentions/"+si.ID+"/"+step, nil, h)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s: %d %s", step, res.StatusCode, string(data))
		}
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/seeker-intentions/"+si.ID+"/convert", map[string]any{
		"gross_commission_pct": 4,
	}, h)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("convert: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/transitions?limit=2", nil, h)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list transitions: %d %s", res.StatusCode, string(data))
	}
	var page paginatedTransitions
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected a full page with a cursor: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/transitions?limit=2&cursor="+page.NextCursor, nil, h)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second page: %d %s", res.StatusCode, string(data))
	}
	var next paginatedTransitions
	if err := json.Unmarshal(data, &next); err != nil {
		t.Fatalf("unmarshal second page: %v", err)
	}
	if len(next.Items) == 0 {
		t.Fatalf("expected rows on the second page")
	}
	if next.Items[0].ID >= page.Items[len(page.Items)-1].ID {
		t.Fatalf("expected the cursor to move past the first page")
	}
}
