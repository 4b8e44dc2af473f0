//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/jsamuelsen/quote-revisions/internal/adapters/http"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quote-revisions/internal/adapters/store"
	"github.com/jsamuelsen/quote-revisions/internal/bootstrap"
	"github.com/jsamuelsen/quote-revisions/internal/platform/config"
	"github.com/jsamuelsen/quote-revisions/internal/platform/telemetry"
)

// scenario is the caller one feature scenario plays, plus the last response
// it saw.
type scenario struct {
	baseURL string
	client  *http.Client

	user     string
	tenantID string

	// ids maps scenario aliases to revision IDs.
	ids map[string]string

	status int
	body   []byte
}

func newScenario(baseURL string) *scenario {
	return &scenario{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		ids:     make(map[string]string),
	}
}

func (tc *scenario) reset(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
	tc.user, tc.tenantID = "", ""
	tc.status, tc.body = 0, nil
	clear(tc.ids)

	return ctx, nil
}

// startService runs the service in-process on a fresh SQLite database unless
// BASE_URL points at a deployed instance.
func startService(t *testing.T) string {
	t.Helper()

	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		return baseURL
	}

	gin.SetMode(gin.TestMode)
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	cfg.Store = config.StoreConfig{
		Driver:      store.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "revisions.db"),
		AutoMigrate: true,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Options{})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	t.Cleanup(func() { _ = engine.Close() })

	metrics, err := telemetry.NewHTTPMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("registering http metrics: %v", err)
	}

	router := gin.New()
	httpadapter.Routes{
		Logger:         logger,
		Auth:           &cfg.Auth,
		ServiceName:    cfg.App.Name,
		Metrics:        metrics,
		Health:         handlers.NewHealthHandler(engine.Health, handlers.NewBuildInfo("test", "test", "test")),
		Revisions:      handlers.NewRevisionHandler(engine.Revisions, engine.Archive),
		RequestTimeout: cfg.Server.RequestTimeout,
	}.Mount(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server.URL
}

// InitializeScenario returns the step registrations for a service at baseURL.
func InitializeScenario(baseURL string) func(*godog.ScenarioContext) {
	return func(ctx *godog.ScenarioContext) {
		tc := newScenario(baseURL)
		ctx.Before(tc.reset)

		ctx.Step(`^the service is running$`, tc.serviceIsLive)
		ctx.Step(`^I am user "([^"]*)" of tenant "([^"]*)"$`, tc.iAmUserOfTenant)
		ctx.Step(`^I am user "([^"]*)" without a tenant$`, tc.iAmUserWithoutATenant)
		ctx.Step(`^I begin a lineage "([^"]*)" with total "([^"]*)"$`, tc.iBeginALineage)
		ctx.Step(`^I begin a lineage "([^"]*)" in bundle "([^"]*)"$`, tc.iBeginALineageInBundle)
		ctx.Step(`^I create a bundle "([^"]*)"$`, tc.iCreateABundle)
		ctx.Step(`^I create version "([^"]*)" from "([^"]*)"$`, tc.iCreateVersionFrom)
		ctx.Step(`^I create version "([^"]*)" from "([^"]*)" with total "([^"]*)"$`, tc.iCreateVersionFromWithTotal)
		ctx.Step(`^I activate "([^"]*)"$`, tc.iActivate)
		ctx.Step(`^I close "([^"]*)" as "([^"]*)"$`, tc.iClose)
		ctx.Step(`^I request GET "([^"]*)"$`, tc.iRequestGET)
		ctx.Step(`^the response status should be (\d+)$`, tc.expectStatus)
		ctx.Step(`^the response should contain "([^"]*)"$`, tc.expectBodyContains)
		ctx.Step(`^"([^"]*)" should be version (\d+) of "([^"]*)"$`, tc.shouldBeVersionOf)
		ctx.Step(`^the active revision of "([^"]*)" should be "([^"]*)"$`, tc.theActiveRevisionShouldBe)
		ctx.Step(`^lineage "([^"]*)" should have no active revision$`, tc.noActiveRevision)
		ctx.Step(`^"([^"]*)" should have status "([^"]*)"$`, tc.shouldHaveStatus)
		ctx.Step(`^bundle "([^"]*)" should have (\d+) member lineages?$`, tc.bundleShouldHaveMembers)
	}
}

func (tc *scenario) serviceIsLive() error {
	if err := tc.do(http.MethodGet, "/-/live", nil); err != nil {
		return fmt.Errorf("no service at %s: %w", tc.baseURL, err)
	}

	return tc.expectStatus(http.StatusOK)
}

func (tc *scenario) iAmUserOfTenant(user, tenantID string) error {
	tc.user = user
	tc.tenantID = tenantID

	return nil
}

func (tc *scenario) iAmUserWithoutATenant(user string) error {
	tc.user = user
	tc.tenantID = ""

	return nil
}

func (tc *scenario) iBeginALineage(alias, total string) error {
	return tc.create(alias, "/api/v1/quotes", map[string]any{
		"customerId":  "cust-" + alias,
		"title":       "Quote " + alias,
		"totalAmount": total,
	})
}

func (tc *scenario) iBeginALineageInBundle(alias, bundle string) error {
	bundleID, err := tc.id(bundle)
	if err != nil {
		return err
	}

	return tc.create(alias, "/api/v1/quotes", map[string]any{
		"customerId": "cust-" + alias,
		"bundleId":   bundleID,
	})
}

func (tc *scenario) iCreateABundle(alias string) error {
	return tc.create(alias, "/api/v1/bundles", map[string]any{"customerId": "cust-" + alias})
}

func (tc *scenario) iCreateVersionFrom(alias, prior string) error {
	priorID, err := tc.id(prior)
	if err != nil {
		return err
	}

	return tc.create(alias, "/api/v1/quotes/"+priorID+"/versions", map[string]any{})
}

func (tc *scenario) iCreateVersionFromWithTotal(alias, prior, total string) error {
	priorID, err := tc.id(prior)
	if err != nil {
		return err
	}

	return tc.create(alias, "/api/v1/quotes/"+priorID+"/versions", map[string]any{"totalAmount": total})
}

func (tc *scenario) iActivate(alias string) error {
	id, err := tc.id(alias)
	if err != nil {
		return err
	}

	return tc.do(http.MethodPost, "/api/v1/quotes/"+id+"/activate", nil)
}

func (tc *scenario) iClose(alias, status string) error {
	id, err := tc.id(alias)
	if err != nil {
		return err
	}

	return tc.do(http.MethodPost, "/api/v1/quotes/"+id+"/close", map[string]any{"status": status})
}

// iRequestGET makes a GET request. "{alias}" in the path is replaced by the aliased ID.
func (tc *scenario) iRequestGET(path string) error {
	for alias, id := range tc.ids {
		path = strings.ReplaceAll(path, "{"+alias+"}", id)
	}

	return tc.do(http.MethodGet, path, nil)
}

func (tc *scenario) expectStatus(want int) error {
	switch tc.status {
	case want:
		return nil
	case 0:
		return errors.New("no request sent yet")
	default:
		return fmt.Errorf("got status %d, want %d: %s", tc.status, want, tc.body)
	}
}

func (tc *scenario) expectBodyContains(text string) error {
	if !bytes.Contains(tc.body, []byte(text)) {
		return fmt.Errorf("body lacks %q: %s", text, tc.body)
	}

	return nil
}

func (tc *scenario) shouldBeVersionOf(alias string, version int, root string) error {
	rev, err := tc.fetch(alias)
	if err != nil {
		return err
	}

	rootID, err := tc.id(root)
	if err != nil {
		return err
	}

	if rev.VersionNumber != version || rev.RootID != rootID {
		return fmt.Errorf("%s is version %d of %s, want version %d of %s",
			alias, rev.VersionNumber, rev.RootID, version, rootID)
	}

	return nil
}

func (tc *scenario) theActiveRevisionShouldBe(root, alias string) error {
	rootID, err := tc.id(root)
	if err != nil {
		return err
	}

	want, err := tc.id(alias)
	if err != nil {
		return err
	}

	if err := tc.do(http.MethodGet, "/api/v1/lineages/"+rootID+"/active", nil); err != nil {
		return err
	}

	var rev revision
	if err := tc.decode(http.StatusOK, &rev); err != nil {
		return err
	}

	if rev.ID != want {
		return fmt.Errorf("active revision is %s (v%d), want %s", rev.ID, rev.VersionNumber, alias)
	}

	return nil
}

func (tc *scenario) noActiveRevision(root string) error {
	rootID, err := tc.id(root)
	if err != nil {
		return err
	}

	if err := tc.do(http.MethodGet, "/api/v1/lineages/"+rootID+"/active", nil); err != nil {
		return err
	}

	return tc.expectStatus(http.StatusNotFound)
}

func (tc *scenario) shouldHaveStatus(alias, status string) error {
	rev, err := tc.fetch(alias)
	if err != nil {
		return err
	}

	if rev.LifecycleStatus != status {
		return fmt.Errorf("%s has status %s, want %s", alias, rev.LifecycleStatus, status)
	}

	return nil
}

func (tc *scenario) bundleShouldHaveMembers(bundle string, count int) error {
	bundleID, err := tc.id(bundle)
	if err != nil {
		return err
	}

	if err := tc.do(http.MethodGet, "/api/v1/bundles/"+bundleID+"/members", nil); err != nil {
		return err
	}

	var body struct {
		Lineages []json.RawMessage `json:"lineages"`
	}
	if err := tc.decode(http.StatusOK, &body); err != nil {
		return err
	}

	if len(body.Lineages) != count {
		return fmt.Errorf("bundle %s has %d member lineages, want %d", bundle, len(body.Lineages), count)
	}

	return nil
}

// revision is the subset of the revision response the steps inspect.
type revision struct {
	ID              string `json:"id"`
	RootID          string `json:"rootId"`
	VersionNumber   int    `json:"versionNumber"`
	LifecycleStatus string `json:"lifecycleStatus"`
}

func (tc *scenario) id(alias string) (string, error) {
	id, ok := tc.ids[alias]
	if !ok {
		return "", fmt.Errorf("no revision named %q in this scenario", alias)
	}

	return id, nil
}

func (tc *scenario) create(alias, path string, body any) error {
	if err := tc.do(http.MethodPost, path, body); err != nil {
		return err
	}

	var rev revision
	if err := tc.decode(http.StatusCreated, &rev); err != nil {
		return err
	}

	tc.ids[alias] = rev.ID

	return nil
}

func (tc *scenario) fetch(alias string) (*revision, error) {
	id, err := tc.id(alias)
	if err != nil {
		return nil, err
	}

	if err := tc.do(http.MethodGet, "/api/v1/quotes/"+id, nil); err != nil {
		return nil, err
	}

	var rev revision
	if err := tc.decode(http.StatusOK, &rev); err != nil {
		return nil, err
	}

	return &rev, nil
}

func (tc *scenario) decode(status int, v any) error {
	if err := tc.expectStatus(status); err != nil {
		return err
	}

	if err := json.Unmarshal(tc.body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", tc.body, err)
	}

	return nil
}

// do sends a request as the scenario's user and tenant and records the response.
func (tc *scenario) do(method, path string, body any) error {
	var payload io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}

		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.baseURL+path, payload)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	for header, value := range map[string]string{"X-User-ID": tc.user, "X-Tenant-ID": tc.tenantID} {
		if value != "" {
			req.Header.Set(header, value)
		}
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)

	return err
}

// TestFeatures runs test/features against an in-process service or BASE_URL.
func TestFeatures(t *testing.T) {
	// Resolved before startService changes the working directory.
	features, err := filepath.Abs("../features")
	if err != nil {
		t.Fatal(err)
	}

	baseURL := startService(t)

	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario(baseURL),
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{features},
			TestingT: t,
			Tags:     os.Getenv("GODOG_TAGS"),
		},
	}

	if status := suite.Run(); status != 0 {
		t.Fatalf("feature run exited with status %d", status)
	}
}
