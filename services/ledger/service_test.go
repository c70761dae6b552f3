package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mealplan-backend/lib/retry"
	"mealplan-backend/lib/scrapers/eliving"
	"mealplan-backend/lib/scrapers/eliving/elivingtest"
	"mealplan-backend/lib/telemetry"
	"mealplan-backend/lib/testutil"
	"mealplan-backend/services/ingest"
	"mealplan-backend/services/searchlog"
	"mealplan-backend/services/searchlog/db"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "abc123@psu.edu"
	testPassword = "correct-horse-battery"
	testCode     = "424242"
)

func testLogin() LoginRequest {
	return LoginRequest{
		PsuEmail:         testEmail,
		Password:         testPassword,
		VerificationCode: testCode,
		FromDate:         "01/01/2024",
		ToDate:           "03/31/2024",
	}
}

type testEnv struct {
	portal  *elivingtest.Portal
	service *Service
	server  *httptest.Server
	rec     *telemetry.Recorder
}

func setup(t *testing.T, accessToken string, opts Options) testEnv {
	t.Helper()
	database := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/ledger",
		DbSchema: db.Schema,
	})

	portal := elivingtest.New()
	portal.Email = testEmail
	portal.Password = testPassword
	portal.Code = testCode
	portal.Pages = elivingtest.Rows(3, 5, 2)

	rec := &telemetry.Recorder{}
	opts.Scrape = eliving.Options{
		PortalUrl:         "https://eliving.test/",
		WaitTimeout:       50 * time.Millisecond,
		NavigationTimeout: 50 * time.Millisecond,
		Pagination:        retry.Policy{MaxAttempts: 2, Backoff: time.Millisecond},
		Location:          time.UTC,
		Telemetry:         rec,
	}
	service := NewService(
		portal.Launcher(),
		ingest.NewService(ingest.WithLocation(time.UTC), ingest.WithCustomTelemetryAPI(rec)),
		searchlog.NewStore(database.DB),
		opts,
		WithCustomTelemetryAPI(rec),
	)
	server := httptest.NewServer(service.Handler(accessToken))
	t.Cleanup(server.Close)
	return testEnv{portal: portal, service: service, server: server, rec: rec}
}

func (e testEnv) post(t *testing.T, path string, body any) (int, []byte) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

func (e testEnv) get(t *testing.T, path string, token string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	out, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, out
}

func requireNoSecrets(t *testing.T, body []byte) {
	t.Helper()
	for _, secret := range []string{testPassword, testCode, testEmail} {
		require.NotContains(t, string(body), secret)
	}
}

func TestLogin(t *testing.T) {
	env := setup(t, "", Options{})

	status, body := env.post(t, "/login", testLogin())
	require.Equal(t, http.StatusOK, status, string(body))
	requireNoSecrets(t, body)

	var res LoginResponse
	require.NoError(t, json.Unmarshal(body, &res))
	require.True(t, res.Success)
	require.Equal(t, 10, res.TransactionCount)
	require.Len(t, res.Transactions, 10)
	require.NotEmpty(t, res.SearchId)
	require.True(t, env.portal.Page.Closed())

	// the first generated row is a Findlay Commons purchase
	require.Equal(t, "Findlay Commons", res.Transactions[0].Location)
	require.Equal(t, "East", res.Transactions[0].Category)
	require.Equal(t, "Dining Hall", res.Transactions[0].Subcategory)

	status, body = env.get(t, "/searches", "")
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Searches []searchlog.Entry `json:"searches"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Searches, 1)
	expected := searchlog.Entry{
		ID:      res.SearchId,
		Email:   "a***@psu.edu",
		From:    "01/01/2024",
		To:      "03/31/2024",
		Success: true,
		Count:   10,
	}
	if diff := cmp.Diff(expected, list.Searches[0], cmpopts.IgnoreFields(searchlog.Entry{}, "Time")); diff != "" {
		t.Fatal(diff)
	}
	require.False(t, list.Searches[0].Time.IsZero())

	status, body = env.get(t, "/searches/"+res.SearchId, "")
	require.Equal(t, http.StatusOK, status)
	requireNoSecrets(t, body)

	status, _ = env.get(t, "/searches/does-not-exist", "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestLoginFailures(t *testing.T) {
	cases := []struct {
		name      string
		configure func(p *elivingtest.Portal, req *LoginRequest)
		status    int
		class     eliving.Class
	}{
		{
			name:      "wrong code",
			configure: func(p *elivingtest.Portal, _ *LoginRequest) { p.Code = "000000" },
			status:    http.StatusUnauthorized,
			class:     eliving.ClassReenterCode,
		},
		{
			name:      "wrong password",
			configure: func(p *elivingtest.Portal, _ *LoginRequest) { p.Password = "something else" },
			status:    http.StatusUnauthorized,
			class:     eliving.ClassReenterCredentials,
		},
		{
			name:      "portal down",
			configure: func(p *elivingtest.Portal, _ *LoginRequest) { p.Stall = elivingtest.ScreenPortal },
			status:    http.StatusServiceUnavailable,
			class:     eliving.ClassTryAgain,
		},
		{
			name:      "dates out of order",
			configure: func(_ *elivingtest.Portal, req *LoginRequest) { req.FromDate = "04/01/2024" },
			status:    http.StatusBadRequest,
			class:     eliving.ClassReenterCredentials,
		},
		{
			name: "unreadable ledger",
			configure: func(p *elivingtest.Portal, _ *LoginRequest) {
				p.Pages[0][0][1] = "Dining Dollars"
			},
			status: http.StatusInternalServerError,
			class:  eliving.ClassContactSupport,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			env := setup(t, "", Options{})
			req := testLogin()
			test.configure(env.portal, &req)

			status, body := env.post(t, "/login", req)
			require.Equal(t, test.status, status, string(body))
			requireNoSecrets(t, body)

			var failure LoginFailure
			require.NoError(t, json.Unmarshal(body, &failure))
			require.False(t, failure.Success)
			require.Equal(t, test.class, failure.Class)
			require.NotEmpty(t, failure.Reason)
			require.NotEmpty(t, failure.SearchId)

			entry, err := env.service.Search(context.Background(), failure.SearchId)
			require.NoError(t, err)
			require.False(t, entry.Success)
			require.Equal(t, string(test.class), entry.Class)
			require.Equal(t, failure.Reason, entry.Reason)
		})
	}
}

func TestLoginMissingFields(t *testing.T) {
	env := setup(t, "", Options{})
	req := testLogin()
	req.VerificationCode = ""

	status, body := env.post(t, "/login", req)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, string(body), "Fill in all required fields")

	status, _ = env.post(t, "/login", map[string]any{"psuEmail": 42})
	require.Equal(t, http.StatusBadRequest, status)

	entries, err := env.service.Searches(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Equal(t, 0, env.portal.Page.Launches)
}

func TestLoginBusy(t *testing.T) {
	env := setup(t, "", Options{MaxSessions: 1, QueueTimeout: 10 * time.Millisecond})
	// another login holds the only session
	require.NoError(t, env.service.sessions.Acquire(context.Background(), 1))

	status, body := env.post(t, "/login", testLogin())
	require.Equal(t, http.StatusServiceUnavailable, status)

	var failure LoginFailure
	require.NoError(t, json.Unmarshal(body, &failure))
	require.Equal(t, eliving.ClassTryAgain, failure.Class)
	require.Equal(t, 0, env.portal.Page.Launches)
	require.Contains(t, env.rec.IDs(telemetry.LevelWarning), "ledger:"+report_busy)

	env.service.sessions.Release(1)
}

const export = "03/14/2024 13:05\tLionCash\t60011234\tWarnock Market\tPurchase\t(4.50) USD\n" +
	"12345678910...  Page 1 of 1, items 1 to 2 of 2.\n" +
	"03/15/2024 08:30\tCampus Meal Plan\t60011234\tHUB-Robeson Starbucks\tPurchase\t(6.25) USD\n"

func TestUpload(t *testing.T) {
	env := setup(t, "", Options{})

	status, body := env.post(t, "/upload-transactions", UploadRequest{CsvData: export, UserId: "abc123"})
	require.Equal(t, http.StatusOK, status, string(body))
	var res UploadResponse
	require.NoError(t, json.Unmarshal(body, &res))
	require.True(t, res.Success)
	require.Equal(t, 2, res.TransactionCount)
	require.Equal(t, "North", res.Transactions[0].Category)
	require.Equal(t, "Coffee", res.Transactions[1].Subcategory)

	status, _ = env.post(t, "/upload-transactions", UploadRequest{CsvData: export})
	require.Equal(t, http.StatusBadRequest, status)

	status, body = env.post(t, "/upload-transactions", UploadRequest{
		CsvData: strings.Replace(export, "LionCash", "Dining Dollars", 1),
		UserId:  "abc123",
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, string(body), "unknown account type")
}

func TestAccessToken(t *testing.T) {
	env := setup(t, "secret", Options{})

	status, _ := env.get(t, "/health", "")
	require.Equal(t, http.StatusOK, status)

	status, _ = env.get(t, "/searches", "")
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = env.get(t, "/searches", "wrong")
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = env.get(t, "/searches", "secret")
	require.Equal(t, http.StatusOK, status)

	status, _ = env.post(t, "/login", testLogin())
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, 0, env.portal.Page.Launches)
}

func TestClient(t *testing.T) {
	env := setup(t, "secret", Options{})
	client := NewClient(ClientOptions{BaseUrl: env.server.URL, AccessToken: "secret"})
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	uploaded, err := client.Upload(ctx, UploadRequest{CsvData: export, UserId: "abc123"})
	require.NoError(t, err)
	require.Equal(t, 2, uploaded.TransactionCount)

	_, err = client.Upload(ctx, UploadRequest{CsvData: "", UserId: "abc123"})
	require.ErrorContains(t, err, "CSV data and userId are required")

	_, searchId, err := env.service.Login(ctx, testLogin())
	require.NoError(t, err)

	entries, err := client.Searches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, searchId, entries[0].ID)

	entry, err := client.Search(ctx, searchId)
	require.NoError(t, err)
	require.Equal(t, 10, entry.Count)

	_, err = client.Search(ctx, "does-not-exist")
	require.ErrorContains(t, err, "Search record not found")

	unauthorized := NewClient(ClientOptions{BaseUrl: env.server.URL})
	_, err = unauthorized.Searches(ctx, 0)
	require.Error(t, err)
}
