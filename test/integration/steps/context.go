// Package steps provides step definitions for BDD integration tests.
package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/facturio/backend/internal/application/usecase/dispatch"
	"github.com/facturio/backend/internal/application/usecase/render"
	"github.com/facturio/backend/internal/infra/server/router"
	"github.com/facturio/backend/internal/integration/adapters"
	"github.com/facturio/backend/internal/integration/email"
	"github.com/facturio/backend/internal/integration/entrypoint/controller"
	"github.com/facturio/backend/internal/integration/entrypoint/middleware"
	"github.com/facturio/backend/internal/integration/locks"
	"github.com/facturio/backend/internal/integration/persistence"
	"github.com/facturio/backend/internal/integration/persistence/model"
	"github.com/facturio/backend/test/integration/mock"
)

const testTriggerToken = "test-trigger-token"

// TestContext holds the per-scenario state.
type TestContext struct {
	// Infrastructure
	db     *mock.Db
	clock  *mock.Time
	sender *email.MockEmailSender
	server *httptest.Server
	engine *gin.Engine

	// HTTP
	requestHeaders map[string]string
	responseStatus int
	responseBody   []byte
	responseJSON   map[string]interface{}

	// Fixture lookup by business key
	ownerID       uuid.UUID
	clientIDs     map[string]uuid.UUID
	parentIDs     map[string]uuid.UUID
	parentClients map[string]uuid.UUID
}

type contextKey struct{}

// GetTestContext retrieves the TestContext from context.
func GetTestContext(ctx context.Context) *TestContext {
	if tc, ok := ctx.Value(contextKey{}).(*TestContext); ok {
		return tc
	}
	return nil
}

// SetTestContext stores the TestContext in context.
func SetTestContext(ctx context.Context, tc *TestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// InitializeTestSuite sets up resources before any scenarios run.
func InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		gin.SetMode(gin.TestMode)
	})
}

// InitializeScenario registers scenario hooks and step definitions.
func InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc, err := newTestContext()
		if err != nil {
			return ctx, err
		}
		return SetTestContext(ctx, tc), nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if tc := GetTestContext(ctx); tc != nil && tc.server != nil {
			tc.server.Close()
		}
		return ctx, nil
	})

	registerFixtureSteps(ctx)
	registerTriggerSteps(ctx)
	registerAssertionSteps(ctx)
}

func newTestContext() (*TestContext, error) {
	tc := &TestContext{
		clock:          mock.NewTime(),
		sender:         email.NewMockEmailSender(),
		requestHeaders: make(map[string]string),
		clientIDs:      make(map[string]uuid.UUID),
		parentIDs:      make(map[string]uuid.UUID),
		parentClients:  make(map[string]uuid.UUID),
		db: mock.NewDb(
			&model.UserModel{},
			&model.ClientModel{},
			&model.InvoiceModel{},
			&model.QuoteModel{},
			&model.ReminderTemplateModel{},
			&model.FollowUpModel{},
			&model.OutboxModel{},
			&model.EventModel{},
		),
	}

	if err := tc.db.Reset(); err != nil {
		return nil, err
	}

	redisClient := mock.NewRedis()
	if err := mock.ClearRedis(redisClient); err != nil {
		return nil, err
	}

	userRepo := persistence.NewUserRepository(tc.db.Conn)
	dispatcher := dispatch.NewDispatcher(dispatch.Deps{
		FollowUps:    persistence.NewFollowUpRepository(tc.db.Conn),
		Invoices:     persistence.NewInvoiceRepository(tc.db.Conn),
		Quotes:       persistence.NewQuoteRepository(tc.db.Conn),
		Clients:      persistence.NewClientRepository(tc.db.Conn),
		Users:        userRepo,
		Templates:    render.NewResolver(persistence.NewTemplateRepository(tc.db.Conn), "fr"),
		Outbox:       persistence.NewOutboxRepository(tc.db.Conn),
		Events:       persistence.NewEventRepository(tc.db.Conn),
		Sender:       tc.sender,
		Entitlements: adapters.NewEntitlementService(userRepo),
		Locker:       locks.NewRedisParentLocker(redisClient, 30*time.Second),
		Links:        adapters.NewLinkService("https://app.facturio.test", "integration-test-secret", time.Hour, tc.clock.Now),
	}, dispatch.Config{
		PageSize:    100,
		ResendDelay: 24 * time.Hour,
		Clock:       tc.clock.Now,
	})

	healthController := controller.NewHealthController(func() bool { return true })
	dispatchController := controller.NewDispatchController(dispatcher, 10*time.Second)
	triggerAuth := middleware.NewTriggerAuth(testTriggerToken)

	r := router.NewRouter(healthController, dispatchController, triggerAuth, nil)
	tc.engine = r.Setup("test")
	tc.server = httptest.NewServer(tc.engine)

	return tc, nil
}

// post sends a POST request to the scenario server and captures the response.
func (tc *TestContext) post(endpoint string) error {
	req, err := http.NewRequest(http.MethodPost, tc.server.URL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range tc.requestHeaders {
		req.Header.Set(key, value)
	}

	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	tc.responseStatus = resp.StatusCode
	tc.responseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	tc.responseJSON = nil
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(tc.responseBody, &tc.responseJSON)
	}
	return nil
}

// jsonField resolves a dot-separated path in the parsed response body.
func (tc *TestContext) jsonField(path string) (interface{}, error) {
	if tc.responseJSON == nil {
		return nil, fmt.Errorf("response is not JSON: %s", tc.responseBody)
	}
	var current interface{} = tc.responseJSON
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %q is not an object", path)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response: %s", path, tc.responseBody)
		}
	}
	return current, nil
}
