package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"benefit-orchestrator/internal/collaborator"
	apperrors "benefit-orchestrator/internal/common/errors"
	"benefit-orchestrator/internal/common/logger"
	"benefit-orchestrator/internal/identity"
	"benefit-orchestrator/internal/models"
	"benefit-orchestrator/internal/orchestrator"
	"benefit-orchestrator/internal/records"
	"benefit-orchestrator/internal/routing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type approveAll struct{}

func (approveAll) Invoke(ctx context.Context, req collaborator.StageRequest) (*models.StageResult, error) {
	res := &models.StageResult{Stage: req.Stage, Outcome: models.OutcomeApproved}
	if req.Stage == models.StageHumanReview {
		res.HumanResponse = &models.HumanResponse{Kind: models.ResponseAgree}
	}
	return res, nil
}

type rejectEligibility struct{ approveAll }

func (r rejectEligibility) Invoke(ctx context.Context, req collaborator.StageRequest) (*models.StageResult, error) {
	if req.Stage == models.StageEligibilityDecision {
		return nil, apperrors.NewStageResultInvalidError(string(req.Stage), []string{"outcome: required"})
	}
	return r.approveAll.Invoke(ctx, req)
}

func newTestServer(t *testing.T, withDriver bool, checks ...ReadinessCheck) *httptest.Server {
	t.Helper()
	var collab collaborator.Collaborator
	if withDriver {
		collab = approveAll{}
	}
	return newTestServerWith(t, collab, checks...)
}

// newTestServerWith wires a driver around collab when it is non-nil.
func newTestServerWith(t *testing.T, collab collaborator.Collaborator, checks ...ReadinessCheck) *httptest.Server {
	t.Helper()
	log := logger.NewTestLogger(t)

	repo, err := records.NewStaticRepository()
	require.NoError(t, err)

	deps := Dependencies{
		Store:   records.NewStore(repo, log),
		Matcher: identity.NewMatcher(repo, identity.Options{}, log),
		Router:  routing.New(routing.Options{}, log),
		Checks:  checks,
	}
	if collab != nil {
		deps.Driver = orchestrator.NewDriver(orchestrator.Options{StageTimeout: time.Second}, orchestrator.Dependencies{
			Store:        deps.Store,
			Matcher:      deps.Matcher,
			Router:       deps.Router,
			Collaborator: collab,
		}, log)
	}

	server := httptest.NewServer(NewServer(deps, log).Routes())
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, url string, dst interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, dst interface{}) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

// ==========================
// Health
// ==========================

func TestHealthAndMetrics(t *testing.T) {
	server := newTestServer(t, false)

	var body map[string]interface{}
	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/health", &body))
	assert.Equal(t, "healthy", body["status"])

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReady(t *testing.T) {
	ok := newTestServer(t, false, ReadinessCheck{Name: "postgres", Check: func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, getJSON(t, ok.URL+"/ready", nil))

	failing := newTestServer(t, false, ReadinessCheck{Name: "redis", Check: func(context.Context) error {
		return errors.New("connection refused")
	}})
	var body struct {
		Status   string            `json:"status"`
		Failures map[string]string `json:"failures"`
	}
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, failing.URL+"/ready", &body))
	assert.Equal(t, "connection refused", body.Failures["redis"])
}

// ==========================
// Lookups
// ==========================

func TestGetCase(t *testing.T) {
	server := newTestServer(t, false)

	var c models.Case
	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/v1/cases/req-002", &c))
	assert.Equal(t, "REQ-002", c.ID)
	assert.Equal(t, "Rachel Glover", c.Requestor.FullName)

	var nf models.NotFound
	assert.Equal(t, http.StatusNotFound, getJSON(t, server.URL+"/api/v1/cases/REQ-404", &nf))
	assert.Equal(t, models.KindCaseNotFound, nf.Kind)
	assert.Equal(t, "Request ID 'REQ-404' not found", nf.Message)
	assert.Len(t, nf.Alternatives, 5)
}

func TestGetDocument(t *testing.T) {
	server := newTestServer(t, false)

	var doc models.DocumentResult
	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/api/v1/cases/REQ-001/documents/DOC-001", &doc))
	assert.Equal(t, "DOC-001", doc.DocumentID)
	assert.NotEmpty(t, doc.Content)

	var nf models.NotFound
	assert.Equal(t, http.StatusNotFound, getJSON(t, server.URL+"/api/v1/cases/REQ-001/documents/DOC-005", &nf))
	assert.Equal(t, models.KindDocumentNotFound, nf.Kind)
	assert.Equal(t, []string{"DOC-001", "DOC-002"}, nf.Alternatives)

	nf = models.NotFound{}
	assert.Equal(t, http.StatusNotFound, getJSON(t, server.URL+"/api/v1/cases/REQ-404/documents/DOC-001", &nf))
	assert.Equal(t, models.KindCaseNotFound, nf.Kind)
}

// ==========================
// Identity
// ==========================

func TestSearchIdentity(t *testing.T) {
	server := newTestServer(t, false)

	var body searchResponse
	status := postJSON(t, server.URL+"/api/v1/identity/search", `{"ssn":"7583","name":"Ashlee Thompson"}`, &body)
	assert.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body.Results)
	assert.Equal(t, "CUST-001", body.Results[0].Record.ID)
	assert.Equal(t, 100, body.Results[0].Confidence)

	body = searchResponse{}
	assert.Equal(t, http.StatusOK, postJSON(t, server.URL+"/api/v1/identity/search", `{}`, &body))
	assert.Equal(t, 0, body.Count)
	assert.NotNil(t, body.Results)
}

func TestSearchIdentity_BadBody(t *testing.T) {
	server := newTestServer(t, false)

	var body map[string]map[string]interface{}
	assert.Equal(t, http.StatusBadRequest, postJSON(t, server.URL+"/api/v1/identity/search", `{"ssn":`, &body))
	assert.Equal(t, "INVALID_INPUT", body["error"]["code"])
}

func TestVerifyIdentity(t *testing.T) {
	server := newTestServer(t, false)

	var v models.VerificationResult
	assert.Equal(t, http.StatusOK, postJSON(t, server.URL+"/api/v1/identity/verify", `{"name":"Ashley Thompson"}`, &v))
	assert.Equal(t, models.VerificationVerified, v.Status)
	assert.Equal(t, "CUST-001", v.CustomerID)
}

// ==========================
// Routing
// ==========================

func TestRouteNext(t *testing.T) {
	server := newTestServer(t, false)

	var d models.RoutingDecision
	body := `{"history":[{"seq":1,"stage":"Intake","result":{"stage":"Intake","outcome":"Approved"}}]}`
	assert.Equal(t, http.StatusOK, postJSON(t, server.URL+"/api/v1/routing/next", body, &d))
	assert.Equal(t, models.StageIdentityVerification, d.Next)
	assert.Equal(t, routing.RuleStart, d.Rule)
}

// ==========================
// Case runs
// ==========================

func TestRunCase(t *testing.T) {
	server := newTestServer(t, true)

	var out orchestrator.RunOutcome
	assert.Equal(t, http.StatusOK, postJSON(t, server.URL+"/api/v1/cases/REQ-001/run", ``, &out))
	assert.Equal(t, orchestrator.RunCompleted, out.Status)
	assert.Equal(t, 1, out.History.Count(models.StageExecution))

	out = orchestrator.RunOutcome{}
	assert.Equal(t, http.StatusNotFound, postJSON(t, server.URL+"/api/v1/cases/REQ-404/run", ``, &out))
	assert.Equal(t, orchestrator.RunCaseNotFound, out.Status)
	require.NotNil(t, out.NotFound)
	assert.Len(t, out.NotFound.Alternatives, 5)
}

func TestRunCase_FailureKeepsPartialRun(t *testing.T) {
	server := newTestServerWith(t, rejectEligibility{})

	var body struct {
		Error map[string]interface{}  `json:"error"`
		Run   *orchestrator.RunOutcome `json:"run"`
	}
	assert.Equal(t, http.StatusBadGateway, postJSON(t, server.URL+"/api/v1/cases/REQ-001/run", ``, &body))
	assert.Equal(t, "STAGE_RESULT_INVALID", body.Error["code"])

	require.NotNil(t, body.Run)
	assert.Equal(t, orchestrator.RunFailed, body.Run.Status)
	assert.Equal(t, "STAGE_RESULT_INVALID", body.Run.ErrorCode)
	assert.Equal(t, "REQ-001", body.Run.CaseID)
	assert.True(t, body.Run.History.Contains(models.StageIdentityVerification))
	assert.False(t, body.Run.History.Contains(models.StageEligibilityDecision))
}

func TestRunCase_WithoutDriver(t *testing.T) {
	server := newTestServer(t, false)
	assert.Equal(t, http.StatusBadGateway, postJSON(t, server.URL+"/api/v1/cases/REQ-001/run", ``, nil))
}
