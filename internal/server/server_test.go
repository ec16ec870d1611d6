package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"tenureline/internal/db"
	"tenureline/internal/domain"
	"tenureline/internal/migrate"
	"tenureline/internal/repo"
	"tenureline/internal/tenure"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn}
	seed(t, r)
	handler, err := New(Config{Repo: r, BasePath: "/v0", Auth: auth})
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

func seed(t *testing.T, r repo.Repo) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	start, _ := domain.ParseDate("2000-01-10")
	end, _ := domain.ParseDate("2004-05-22")

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	if err := r.UpsertOrder(ctx, tx, domain.Order{
		OrderID: "ord-1", Date: start, Category: "Council of Ministers",
		Details: []domain.OrderDetail{{
			DetailIdx: 0, OfficerID: "off-1",
			Assumes: []domain.Post{{DeptPath: []string{"ministries", "home"}}},
		}},
	}, now); err != nil {
		t.Fatalf("upsert order: %v", err)
	}
	if err := r.UpsertOfficer(ctx, tx, domain.Officer{
		OfficerID: "off-1", Name: "A. Officer",
	}, now); err != nil {
		t.Fatalf("upsert officer: %v", err)
	}
	if err := r.ReplaceTenures(ctx, tx, "run-1", []domain.Tenure{{
		TenureID: "off-1-1", OfficerID: "off-1",
		PostID: "D:ministries>home", Role: "Cabinet Minister",
		StartDate: start, StartOrderID: "ord-1", StartDetailIdx: 0,
		EndDate: end, EndDetailIdx: -1,
		AllOrderInfos: []domain.OrderRef{{OrderID: "ord-1", DetailIdx: 0}},
	}}, []tenure.DataError{{
		Kind: tenure.KindNoManager, Path: "te.off-1-1", Message: "no manager",
	}}); err != nil {
		t.Fatalf("replace tenures: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func get(t *testing.T, client *http.Client, url string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
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

func TestTenureEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := get(t, client, srv.URL+"/v0/tenures?officer_id=off-1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list tenures: %d %s", res.StatusCode, string(data))
	}
	var tenures []TenureResponse
	if err := json.Unmarshal(data, &tenures); err != nil {
		t.Fatalf("unmarshal tenures: %v", err)
	}
	if len(tenures) != 1 || tenures[0].TenureID != "off-1-1" {
		t.Fatalf("unexpected tenures: %+v", tenures)
	}
	if tenures[0].StartDate != "2000-01-10" || tenures[0].EndDate != "2004-05-22" {
		t.Fatalf("unexpected dates: %+v", tenures[0])
	}

	res, data = get(t, client, srv.URL+"/v0/tenures/off-1-1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get tenure: %d %s", res.StatusCode, string(data))
	}

	res, data = get(t, client, srv.URL+"/v0/tenures/missing", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("expected not_found code, got %q", envelope.Error.Code)
	}
}

func TestOfficerDetailIncludesTenures(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()

	res, data := get(t, srv.Client(), srv.URL+"/v0/officers/off-1", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get officer: %d %s", res.StatusCode, string(data))
	}
	var detail OfficerDetailResponse
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("unmarshal officer detail: %v", err)
	}
	if detail.Officer.Name != "A. Officer" {
		t.Fatalf("unexpected officer: %+v", detail.Officer)
	}
	if len(detail.Tenures) != 1 {
		t.Fatalf("expected one tenure, got %d", len(detail.Tenures))
	}
}

func TestErrorsAndSummary(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := get(t, client, srv.URL+"/v0/errors?kind="+tenure.KindNoManager, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list errors: %d %s", res.StatusCode, string(data))
	}
	var errs []ErrorResponse
	if err := json.Unmarshal(data, &errs); err != nil {
		t.Fatalf("unmarshal errors: %v", err)
	}
	if len(errs) != 1 || errs[0].Kind != tenure.KindNoManager {
		t.Fatalf("unexpected errors: %+v", errs)
	}

	res, data = get(t, client, srv.URL+"/v0/summary", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("summary: %d %s", res.StatusCode, string(data))
	}
	var summary SummaryResponse
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("unmarshal summary: %v", err)
	}
	if summary.Tenures != 1 || summary.Officers != 1 || summary.Orders != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.ErrorsByKind[tenure.KindNoManager] != 1 {
		t.Fatalf("unexpected error counts: %+v", summary.ErrorsByKind)
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: "secret"})
	defer cleanup()
	client := srv.Client()

	res, _ := get(t, client, srv.URL+"/v0/tenures", nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}

	// health stays open
	res, _ = get(t, client, srv.URL+"/v0/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health with auth: %d", res.StatusCode)
	}
}
