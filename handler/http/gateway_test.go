package http_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpHdlr "mipgate/handler/http"
	"mipgate/src/core/job"
	"mipgate/src/infrastructure/agent"
)

type stubGateway struct {
	err error
}

func (g *stubGateway) CreatePaymentRequest(ctx context.Context, req job.PaymentRequest) (*job.PaymentDetails, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &job.PaymentDetails{
		BlockchainIdentifier: "mock_bc_abcd1234",
		PayByTime:            9999999999,
		SellerVKey:           "mock_vkey_abcd1234",
		SubmitResultTime:     9999999999 + 3600,
		UnlockTime:           9999999999 + 86400,
	}, nil
}

type stubVectors struct {
	ready bool
}

func (v *stubVectors) Ready(ctx context.Context) (bool, error) {
	return v.ready, nil
}

type fixture struct {
	engine *gin.Engine
	repo   job.Repository
}

func newFixture(t *testing.T, limits httpHdlr.RateLimitConfig) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := job.NewInMemoryRepository()
	svc := job.NewService(repo, &stubGateway{}, "mock_agent_id", "Preprod")

	logger := watermill.NopLogger{}
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, logger)
	runner := agent.NewRunner(svc, repo, pubsub, time.Millisecond, logger)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	require.NoError(t, err)
	router.AddNoPublisherHandler("agent_runner", agent.TasksTopic, pubsub, runner.Handle)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()
	t.Cleanup(func() {
		cancel()
		_ = router.Close()
	})

	handler := httpHdlr.NewGatewayHandler(svc, repo, runner, &stubVectors{ready: true}, limits)
	engine := gin.New()
	handler.RegisterRoutes(engine)

	return &fixture{engine: engine, repo: repo}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *fixture) startJob(t *testing.T) map[string]any {
	t.Helper()
	w := f.do("POST", "/start_job", `{"inputs":{"task":"do_work"}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAvailability(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	w := f.do("GET", "/availability", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "available", body["status"])
	assert.Equal(t, "masumi-agent", body["service_type"])
}

func TestInputSchema(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	w := f.do("GET", "/input_schema", "")
	require.Equal(t, http.StatusOK, w.Code)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"inputs"}, schema["required"])
	assert.Equal(t, false, schema["additionalProperties"])
}

func TestStartJobCreatesAwaitingPayment(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	body := f.startJob(t)

	assert.NotEmpty(t, body["job_id"])
	assert.Equal(t, "awaiting_payment", body["status"])
	assert.Len(t, body["input_hash"], 64)
	assert.Nil(t, body["result"])
	assert.Nil(t, body["error"])

	// Binding fields use the MIP-003 camelCase wire names.
	assert.Equal(t, "mock_bc_abcd1234", body["blockchainIdentifier"])
	assert.Equal(t, "mock_vkey_abcd1234", body["sellerVKey"])
	assert.EqualValues(t, 9999999999, body["payByTime"])
	assert.EqualValues(t, 9999999999+3600, body["submitResultTime"])
	assert.EqualValues(t, 9999999999+86400, body["unlockTime"])
}

func TestStartJobHashKeepsNumberLiterals(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	w := f.do("POST", "/start_job", `{"inputs":{"n":1.0}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	sum := sha256.Sum256([]byte(`{"n":1.0}`))
	assert.Equal(t, hex.EncodeToString(sum[:]), body["input_hash"])
}

func TestStartJobRejectsUnknownFields(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	w := f.do("POST", "/start_job", `{"inputs":{"task":"x"},"bogus":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestStartJobRequiresInputs(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	w := f.do("POST", "/start_job", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestStartJobPaymentFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := job.NewInMemoryRepository()
	svc := job.NewService(repo, &stubGateway{err: context.DeadlineExceeded}, "mock_agent_id", "Preprod")
	handler := httpHdlr.NewGatewayHandler(svc, repo, nil, nil, httpHdlr.RateLimitConfig{})
	engine := gin.New()
	handler.RegisterRoutes(engine)
	f := &fixture{engine: engine, repo: repo}

	w := f.do("POST", "/start_job", `{"inputs":{"task":"x"}}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// All-or-nothing: the failed call left no job behind.
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestGetStatus(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})
	created := f.startJob(t)
	jobID := created["job_id"].(string)

	w := f.do("GET", "/status/"+jobID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, jobID, body["job_id"])
}

func TestGetStatusUnknownJob(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	w := f.do("GET", "/status/nonexistent-000", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "JOB_NOT_FOUND", body["code"])
}

func TestProvideInputValidSignature(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})
	created := f.startJob(t)
	jobID := created["job_id"].(string)

	w := f.do("POST", "/provide_input", `{
		"job_id": "`+jobID+`",
		"signature": "valid_sig_`+jobID+`",
		"data": {"confirmation": "payment_received"}
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])

	// The background task finishes the job after the response.
	require.Eventually(t, func() bool {
		j, err := f.repo.Get(context.Background(), jobID)
		return err == nil && j.Status == job.StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)

	j, err := f.repo.Get(context.Background(), jobID)
	require.NoError(t, err)
	require.NotNil(t, j.Result)
	assert.Equal(t, agent.DefaultResult, *j.Result)
}

func TestProvideInputInvalidSignature(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})
	created := f.startJob(t)
	jobID := created["job_id"].(string)

	w := f.do("POST", "/provide_input", `{
		"job_id": "`+jobID+`",
		"signature": "forged",
		"data": {}
	}`)
	require.Equal(t, http.StatusForbidden, w.Code)

	// The job did not advance.
	j, err := f.repo.Get(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusAwaitingPayment, j.Status)
}

func TestProvideInputUnknownJob(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	// 404 wins over signature checking for unknown ids.
	w := f.do("POST", "/provide_input", `{
		"job_id": "ghost",
		"signature": "valid_sig_ghost",
		"data": {}
	}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProvideInputTwiceConflicts(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})
	created := f.startJob(t)
	jobID := created["job_id"].(string)

	body := `{"job_id": "` + jobID + `", "signature": "valid_sig_` + jobID + `", "data": {}}`
	w := f.do("POST", "/provide_input", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do("POST", "/provide_input", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_STATE_TRANSITION", resp["code"])
}

func TestProvideInputRejectsUnknownFields(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	w := f.do("POST", "/provide_input", `{"job_id":"x","signature":"y","data":{},"extra":true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestStartJobRateLimit(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{PerMinute: 5, Burst: 5})

	for i := 0; i < 5; i++ {
		w := f.do("POST", "/start_job", `{"inputs":{"task":"x"}}`)
		require.Equal(t, http.StatusCreated, w.Code, "request %d within burst", i+1)
	}

	w := f.do("POST", "/start_job", `{"inputs":{"task":"x"}}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, httpHdlr.RateLimitConfig{})

	w := f.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthDegradedWithoutVectorStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := job.NewInMemoryRepository()
	svc := job.NewService(repo, &stubGateway{}, "mock_agent_id", "Preprod")
	handler := httpHdlr.NewGatewayHandler(svc, repo, nil, &stubVectors{ready: false}, httpHdlr.RateLimitConfig{})
	engine := gin.New()
	handler.RegisterRoutes(engine)
	f := &fixture{engine: engine, repo: repo}

	w := f.do("GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}
