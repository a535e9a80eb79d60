package rutsfx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/toyz/ruts/pkg/ruts"
	"github.com/toyz/ruts/pkg/ruts/adapters"
)

type ProductService struct {
	names map[int]string
}

func NewProductService() *ProductService {
	return &ProductService{names: map[int]string{1: "sea", 2: "land"}}
}

type ProductAction struct {
	ruts.TypicalAction
	service *ProductService
}

func NewProductAction(service *ProductService) *ProductAction {
	return &ProductAction{service: service}
}

func (a *ProductAction) Index() (*ruts.JSONResponse, error) {
	return ruts.AsJSON(map[string]int{"count": len(a.service.names)}), nil
}

func (a *ProductAction) Detail(id int) (*ruts.JSONResponse, error) {
	name, ok := a.service.names[id]
	if err := a.CheckOr404NotFound(ok, "no product %d", id); err != nil {
		return nil, err
	}
	return ruts.AsJSON(map[string]string{"name": name}), nil
}

type VisitAction struct {
	ruts.TypicalAction
	visits int
}

func (a *VisitAction) Index() (*ruts.JSONResponse, error) {
	a.visits++
	return ruts.AsJSON(map[string]int{"visits": a.visits}), nil
}

type EmptyAction struct{}

func init() {
	ruts.Annotate[ProductAction](ruts.Execute("Index"), ruts.Execute("Detail"))
	ruts.Annotate[VisitAction](ruts.Execute("Index"))
}

func testConfig() ruts.WebConfig {
	return ruts.WebConfig{
		Adapter:     "echo",
		Port:        "8080",
		LogLevel:    "disabled",
		MetricsPath: "/metrics",
	}
}

func serve(t *testing.T, server *ruts.Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	echoAdapter, ok := server.Adapter().(*adapters.EchoAdapter)
	require.True(t, ok)
	rec := httptest.NewRecorder()
	echoAdapter.GetEngine().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestModule_ServesActions(t *testing.T) {
	var (
		server *ruts.Server
		config *ruts.ModuleConfig
	)
	fxtest.New(t,
		fx.NopLogger,
		fx.Supply(testConfig()),
		fx.Provide(NewProductService),
		Action[ProductAction](NewProductAction),
		Module,
		fx.Populate(&server, &config),
	)

	assert.True(t, config.IsFrozen())
	assert.True(t, config.FindActionMapping("productAction").IsPresent())

	rec := serve(t, server, http.MethodGet, "/product/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(t, server, http.MethodGet, "/product/detail/2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"land"}`, rec.Body.String())

	rec = serve(t, server, http.MethodGet, "/product/detail/9")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, server, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ruts_action_requests_total"))
}

func TestModule_MiddlewareAndDispatcherOption(t *testing.T) {
	var server *ruts.Server
	var seen []string
	fxtest.New(t,
		fx.NopLogger,
		fx.Supply(testConfig()),
		fx.Provide(NewProductService),
		Action[ProductAction](NewProductAction),
		Middleware(func(next ruts.HandlerFunc) ruts.HandlerFunc {
			return func(rc ruts.RequestContext) error {
				seen = append(seen, rc.Path())
				return next(rc)
			}
		}),
		DispatcherOption(ruts.WithSQLCountLimit(5)),
		Module,
		fx.Populate(&server),
	)

	rec := serve(t, server, http.MethodGet, "/product/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/product/"}, seen)
}

func TestModule_PrototypeAction(t *testing.T) {
	var server *ruts.Server
	fxtest.New(t,
		fx.NopLogger,
		fx.Supply(testConfig()),
		Prototype(func() *VisitAction { return &VisitAction{} }),
		Module,
		fx.Populate(&server),
	)

	for range 2 {
		rec := serve(t, server, http.MethodGet, "/visit/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"visits":1}`, rec.Body.String())
	}
}

func TestModule_CustomizeFailureAbortsStart(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(testConfig()),
		Action[EmptyAction](func() *EmptyAction { return &EmptyAction{} }),
		Module,
		fx.Invoke(func(*ruts.Server) {}),
	)
	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), ruts.ErrExecuteNotFound.Error())
}

func TestModule_UnknownAdapter(t *testing.T) {
	cfg := testConfig()
	cfg.Adapter = "tomcat"
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		Module,
	)
	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), `unknown adapter "tomcat"`)
}
