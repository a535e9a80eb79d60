package ruts_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/toyz/ruts/pkg/ruts"
	"github.com/toyz/ruts/pkg/ruts/adapters"
)

type HarborSearchForm struct {
	Name string `form:"name" validate:"required"`
	Page int    `form:"page"`
}

type HarborRegisterBody struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"gte=1"`
}

type HarborAction struct {
	ruts.TypicalAction
}

func (a *HarborAction) Index(ctx context.Context, form *HarborSearchForm) (*ruts.JSONResponse, error) {
	if err := a.Validate(ctx, form, nil); err != nil {
		return nil, err
	}
	return ruts.AsJSON(map[string]any{"name": form.Name, "page": form.Page}), nil
}

func (a *HarborAction) Lazy(form *HarborSearchForm) (*ruts.JSONResponse, error) {
	return ruts.AsJSON(form.Name), nil
}

func (a *HarborAction) Detail(id int) (*ruts.JSONResponse, error) {
	if err := a.CheckParameterPlusNumber(int64(id)); err != nil {
		return nil, err
	}
	return ruts.AsJSON(map[string]int{"id": id}), nil
}

func (a *HarborAction) PostRegister(ctx context.Context, body *HarborRegisterBody) (*ruts.JSONResponse, error) {
	if err := a.Validate(ctx, body, func(messages *ruts.UserMessages) {
		if body.Name == "closed" {
			messages.Add("name", ruts.UserMessageByKey("errors.harbor.closed"))
		}
	}); err != nil {
		return nil, err
	}
	return ruts.AsJSON(body).Status(http.StatusCreated), nil
}

func (a *HarborAction) Reserve() (*ruts.JSONResponse, error) {
	return nil, ruts.NewApplicationError("no berth", ruts.ApplicationMessage{Key: "errors.no.berth"})
}

func (a *HarborAction) Missing() (*ruts.JSONResponse, error) {
	return nil, fmt.Errorf("load harbor: %w", gorm.ErrRecordNotFound)
}

func (a *HarborAction) Crash() (*ruts.JSONResponse, error) {
	panic("rough sea")
}

func (a *HarborAction) Download() (*ruts.StreamResponse, error) {
	return ruts.AsStream("harbor.csv").ContentType("text/csv").Stream(func(w io.Writer) error {
		_, err := io.WriteString(w, "id,name\n1,sea\n")
		return err
	}), nil
}

func (a *HarborAction) Broken() (*ruts.StreamResponse, error) {
	return ruts.AsStream("broken.txt").Data([]byte("a")).Data([]byte("b")), nil
}

type PierAction struct {
	ruts.TypicalAction
}

func (a *PierAction) Index() (*ruts.JSONResponse, error) {
	return nil, ruts.NewApplicationError("pier closed", ruts.ApplicationMessage{Key: "errors.pier.closed"})
}

func init() {
	ruts.Annotate[HarborAction](
		ruts.Execute("Index"),
		ruts.Execute("Lazy"),
		ruts.Execute("Detail"),
		ruts.Execute("PostRegister"),
		ruts.Execute("Reserve"),
		ruts.Execute("Missing"),
		ruts.Execute("Crash"),
		ruts.Execute("Download"),
		ruts.Execute("Broken"),
	)
	ruts.Annotate[PierAction](ruts.Execute("Index"))
}

func newHarborServer(t *testing.T) *adapters.EchoAdapter {
	t.Helper()
	config := ruts.NewModuleConfig()
	customizer := ruts.NewRomanticActionCustomizer(config)
	require.NoError(t, customizer.Customize(ruts.ComponentOf(&HarborAction{})))

	pier := &PierAction{}
	pier.HandleApplicationError = func(rt *ruts.ActionRuntime, appErr *ruts.ApplicationError) (ruts.ActionResponse, error) {
		return ruts.AsJSON(map[string]string{"notice": appErr.Messages[0].Key}).Status(http.StatusConflict), nil
	}
	require.NoError(t, customizer.Customize(ruts.ComponentOf(pier)))

	server := adapters.NewDefaultEchoAdapter()
	ruts.NewRequestDispatcher(config).Mount(server)
	return server
}

func do(server *adapters.EchoAdapter, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	server.GetEngine().ServeHTTP(rec, req)
	return rec
}

func TestDispatcher_FormBinding(t *testing.T) {
	server := newHarborServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/harbor/?name=sea&page=2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"sea","page":2}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/harbor/?name=land", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = do(server, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestDispatcher_ValidationFailure(t *testing.T) {
	server := newHarborServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/harbor/?page=2", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name"`)
	assert.Contains(t, rec.Body.String(), "constraints.required.message")
}

func TestDispatcher_ValidatorNotCalled(t *testing.T) {
	server := newHarborServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/harbor/lazy?name=sea", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDispatcher_URLParameters(t *testing.T) {
	server := newHarborServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/harbor/detail/3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":3}`, rec.Body.String())

	rec = do(server, httptest.NewRequest(http.MethodGet, "/harbor/detail/-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(server, httptest.NewRequest(http.MethodGet, "/harbor/detail/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(server, httptest.NewRequest(http.MethodGet, "/nowhere/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDispatcher_JSONBody(t *testing.T) {
	server := newHarborServer(t)
	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/harbor/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return do(server, req)
	}

	rec := post(`{"name":"dockside","capacity":3}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"name":"dockside","capacity":3}`, rec.Body.String())

	rec = post(`{"name":"closed","capacity":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "errors.harbor.closed")

	rec = post(`{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`[{"name":"sea"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(server, httptest.NewRequest(http.MethodGet, "/harbor/register", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "register accepts POST only")
}

func TestDispatcher_ApplicationError(t *testing.T) {
	server := newHarborServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/harbor/reserve", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"messages":[{"key":"errors.no.berth"}]}}`, rec.Body.String())

	rec = do(server, httptest.NewRequest(http.MethodGet, "/pier/", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"notice":"errors.pier.closed"}`, rec.Body.String())
}

func TestDispatcher_TranslatedAndPanickedErrors(t *testing.T) {
	server := newHarborServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/harbor/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(server, httptest.NewRequest(http.MethodGet, "/harbor/crash", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDispatcher_StreamDownload(t *testing.T) {
	server := newHarborServer(t)

	rec := do(server, httptest.NewRequest(http.MethodGet, "/harbor/download", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="harbor.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "id,name\n1,sea\n", rec.Body.String())

	rec = do(server, httptest.NewRequest(http.MethodGet, "/harbor/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
