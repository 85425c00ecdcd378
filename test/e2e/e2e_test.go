// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow-loans/internal/application"
	"cashflow-loans/internal/common/camunda"
	"cashflow-loans/internal/common/config"
	"cashflow-loans/internal/common/crm"
	"cashflow-loans/internal/common/database"
	"cashflow-loans/internal/common/logger"
	"cashflow-loans/internal/common/ratelimit"
	"cashflow-loans/internal/fallback"
	"cashflow-loans/internal/models"
	"cashflow-loans/internal/portal"
	"cashflow-loans/internal/quote"
	"cashflow-loans/internal/server"
	"cashflow-loans/internal/submission"
	"cashflow-loans/pkg/registry"

	calculatequote "cashflow-loans/internal/workers/loan/calculate-quote"
	submitapplication "cashflow-loans/internal/workers/loan/submit-application"
)

// portalEnv is the portal wired the way cmd/loan-portal wires it, with Redis
// replaced by miniredis and the CRM by a local HTTP server.
type portalEnv struct {
	redis   *miniredis.Miniredis
	crmDown atomic.Bool
	crmHits atomic.Int32
	crm     *httptest.Server
	reg     *registry.ProductRegistry
	forms   portal.FormDeps
	server  *server.Server
}

func newPortalEnv(t *testing.T, rl config.RateLimitConfig) *portalEnv {
	t.Helper()
	env := &portalEnv{redis: miniredis.RunT(t)}

	env.crm = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.crmHits.Add(1)
		var rec models.ApplicationRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "crm-" + rec.ID[:8], "loanAmount": rec.LoanAmount})
	}))
	t.Cleanup(env.crm.Close)

	log := logger.NewTestLogger(t)
	rdb := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: env.redis.Addr()})}
	t.Cleanup(func() { _ = rdb.Close() })

	store, err := fallback.New(config.FallbackConfig{Backend: "redis", Key: "cashflow_leads"},
		fallback.Connections{Redis: rdb}, log)
	require.NoError(t, err)

	env.reg, err = registry.Default()
	require.NoError(t, err)

	// The CRM client is pointed at a closed port while crmDown is set.
	svc := submission.NewService(&switchingCRM{env: env}, store, log)
	engine := quote.NewEngine()
	env.forms = portal.FormDeps{
		Builder:   application.NewBuilder(),
		Submitter: svc,
		Quotes:    engine,
		Logger:    log,
	}

	env.server = server.New(
		config.ServerConfig{BodyLimitMB: 5},
		config.AppConfig{Name: "loan-portal", Version: "e2e", Environment: "test"},
		server.Deps{
			Registry: env.reg,
			Quotes:   engine,
			Forms:    env.forms,
			Store:    store,
			Limiter:  ratelimit.FromConfig(rl, rdb.Client, log),
			Logger:   log,
		},
	)
	return env
}

type switchingCRM struct{ env *portalEnv }

func (s *switchingCRM) CreateClient(ctx context.Context, rec *models.ApplicationRecord) (*crm.Response, error) {
	endpoint := s.env.crm.URL
	if s.env.crmDown.Load() {
		endpoint = "http://127.0.0.1:1"
	}
	return crm.NewClient(endpoint, "", 2*time.Second).CreateClient(ctx, rec)
}

func (e *portalEnv) do(t *testing.T, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func securedApplication(amount string) map[string]interface{} {
	return map[string]interface{}{
		"loanType": "secured",
		"amount":   amount,
		"name":     "Sipho Dlamini",
		"idNumber": "8505055800081",
		"phone":    "0831234567",
		"email":    "sipho@example.com",
		"terms":    true,
		"attachments": map[string]interface{}{
			"collateralImages": []map[string]interface{}{
				{"filename": "car-front.jpg", "contentType": "image/jpeg", "size": 2048},
			},
		},
	}
}

func TestPortalE2E_CalculatorToApplication(t *testing.T) {
	env := newPortalEnv(t, config.RateLimitConfig{})

	status, body := env.do(t, http.MethodGet, "/api/quote?type=secured&amount=20000", nil)
	require.Equal(t, http.StatusOK, status)
	handOff := body["handOff"].(map[string]interface{})
	assert.Equal(t, "secured", handOff["loanType"])
	assert.Equal(t, "20000", handOff["amount"])

	status, body = env.do(t, http.MethodGet, "/api/shell?type=secured&amount=20000", nil)
	require.Equal(t, http.StatusOK, status)
	form := body["form"].(map[string]interface{})
	assert.Equal(t, "application", body["view"])
	assert.Equal(t, "Secured Loan", form["displayName"])
	assert.Equal(t, "20000", form["amount"])

	status, body = env.do(t, http.MethodPost, "/api/applications", securedApplication("20000"))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "crm", body["channel"])
	assert.Contains(t, body["message"], "Loan Amount: R20,000")
	assert.Equal(t, int32(1), env.crmHits.Load())

	assert.False(t, env.redis.Exists("cashflow_leads"))
}

func TestPortalE2E_OutageSavesLeadInRedis(t *testing.T) {
	env := newPortalEnv(t, config.RateLimitConfig{})
	env.crmDown.Store(true)

	status, body := env.do(t, http.MethodPost, "/api/applications", securedApplication("30000"))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "local-storage", body["channel"])
	assert.Contains(t, body["message"], "Application saved locally")

	saved, err := env.redis.List("cashflow_leads")
	require.NoError(t, err)
	require.Len(t, saved, 1)

	var rec models.FallbackRecord
	require.NoError(t, json.Unmarshal([]byte(saved[0]), &rec))
	assert.Equal(t, models.StatusPendingUpload, rec.Status)
	assert.Equal(t, "Secured Loan", rec.LoanType)
	assert.Equal(t, float64(30000), rec.LoanAmount)
	assert.Equal(t, body["leadId"], rec.ID)

	env.crmDown.Store(false)
	status, body = env.do(t, http.MethodPost, "/api/applications", securedApplication("30000"))
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "crm", body["channel"])

	saved, err = env.redis.List("cashflow_leads")
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestPortalE2E_RateLimitSharedThroughRedis(t *testing.T) {
	rl := config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2, UseRedis: true}
	env := newPortalEnv(t, rl)

	for i := 0; i < 2; i++ {
		status, body := env.do(t, http.MethodPost, "/api/applications", securedApplication("20000"))
		require.Equal(t, http.StatusCreated, status, body)
	}
	status, body := env.do(t, http.MethodPost, "/api/applications", securedApplication("20000"))
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body["code"])

	keys := env.redis.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "ratelimit:"), keys[0])
}

// TestZeebeE2E runs the loan-application process against a real broker.
// Set ZEEBE_ADDRESS (e.g. localhost:26500) to enable it.
func TestZeebeE2E(t *testing.T) {
	address := os.Getenv("ZEEBE_ADDRESS")
	if address == "" {
		t.Skip("ZEEBE_ADDRESS not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	env := newPortalEnv(t, config.RateLimitConfig{})
	log := logger.NewTestLogger(t)

	client, err := camunda.NewClient(ctx, camunda.ConfigFrom(config.CamundaConfig{BrokerAddress: address}))
	require.NoError(t, err)
	defer client.Close()

	zeebe := client.GetClient()
	_, err = zeebe.NewDeployResourceCommand().AddResourceFile("../../bpmn/loan-application.bpmn").Send(ctx)
	require.NoError(t, err)

	workers := camunda.NewWorkers(zeebe, log)
	defer workers.Close()
	wcfg := config.WorkerConfig{Enabled: true, MaxJobsActive: 2, Timeout: 30000}
	workers.Start(calculatequote.TaskType, wcfg,
		calculatequote.NewHandler(calculatequote.DefaultConfig(), quote.NewEngine(), env.reg, log))
	workers.Start(submitapplication.TaskType, wcfg,
		submitapplication.NewHandler(submitapplication.DefaultConfig(), env.reg, env.forms, log))

	cmd, err := zeebe.NewCreateInstanceCommand().
		BPMNProcessId("loan-application").
		LatestVersion().
		VariablesFromMap(securedApplication("40000"))
	require.NoError(t, err)

	result, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(result.GetVariables()), &vars))
	assert.Equal(t, float64(60000), vars["totalRepayment"])
	assert.Equal(t, "crm", vars["channel"])
	assert.NotEmpty(t, vars["leadId"])
}
