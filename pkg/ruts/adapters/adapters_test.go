package adapters

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/ruts/pkg/ruts"
)

type testAdapter struct {
	name  string
	build func() ruts.WebServerInterface
	serve func(server ruts.WebServerInterface, req *http.Request) *http.Response
}

func allAdapters() []testAdapter {
	recorded := func(h http.Handler, req *http.Request) *http.Response {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Result()
	}
	return []testAdapter{
		{
			name:  "Echo",
			build: func() ruts.WebServerInterface { return NewDefaultEchoAdapter() },
			serve: func(server ruts.WebServerInterface, req *http.Request) *http.Response {
				return recorded(server.(*EchoAdapter).GetEngine(), req)
			},
		},
		{
			name:  "Gin",
			build: func() ruts.WebServerInterface { return NewDefaultGinAdapter() },
			serve: func(server ruts.WebServerInterface, req *http.Request) *http.Response {
				return recorded(server.(*GinAdapter).GetEngine(), req)
			},
		},
		{
			name:  "Fiber",
			build: func() ruts.WebServerInterface { return NewDefaultFiberAdapter() },
			serve: func(server ruts.WebServerInterface, req *http.Request) *http.Response {
				resp, err := server.(*FiberAdapter).GetApp().Test(req, -1)
				if err != nil {
					panic(err)
				}
				return resp
			},
		},
	}
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestAdapters_Name(t *testing.T) {
	for _, ta := range allAdapters() {
		assert.Equal(t, ta.name, ta.build().Name())
	}
}

func TestAdapters_CatchAllRoute(t *testing.T) {
	for _, ta := range allAdapters() {
		t.Run(ta.name, func(t *testing.T) {
			server := ta.build()
			server.RegisterRoute(http.MethodGet, ruts.CatchAllPath, func(rc ruts.RequestContext) error {
				return rc.Response().Blob(http.StatusOK, "text/plain", []byte(rc.Method()+" "+rc.Path()))
			})

			resp := ta.serve(server, httptest.NewRequest(http.MethodGet, "/sea/land/3", nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "GET /sea/land/3", readAll(t, resp))
		})
	}
}

func TestAdapters_CatchAllBesideHTTPHandler(t *testing.T) {
	for _, ta := range allAdapters() {
		t.Run(ta.name, func(t *testing.T) {
			server := ta.build()
			server.RegisterHTTPHandler(http.MethodGet, "/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("metrics"))
			}))
			server.RegisterRoute(http.MethodGet, ruts.CatchAllPath, func(rc ruts.RequestContext) error {
				return rc.Response().Blob(http.StatusOK, "text/plain", []byte("action"))
			})

			assert.Equal(t, "metrics", readAll(t, ta.serve(server, httptest.NewRequest(http.MethodGet, "/metrics", nil))))
			assert.Equal(t, "action", readAll(t, ta.serve(server, httptest.NewRequest(http.MethodGet, "/product/list", nil))))
		})
	}
}

func TestAdapters_Middleware(t *testing.T) {
	for _, ta := range allAdapters() {
		t.Run(ta.name, func(t *testing.T) {
			server := ta.build()
			var called bool
			server.Use(func(next ruts.HandlerFunc) ruts.HandlerFunc {
				return func(rc ruts.RequestContext) error {
					called = true
					rc.Set("middleware", "executed")
					return next(rc)
				}
			})
			server.RegisterRoute(http.MethodGet, "/middleware", func(rc ruts.RequestContext) error {
				value, _ := rc.Get("middleware").(string)
				return rc.Response().Blob(http.StatusOK, "text/plain", []byte(value))
			})

			resp := ta.serve(server, httptest.NewRequest(http.MethodGet, "/middleware", nil))
			assert.True(t, called)
			assert.Equal(t, "executed", readAll(t, resp))
		})
	}
}

func TestAdapters_QueryAndBody(t *testing.T) {
	for _, ta := range allAdapters() {
		t.Run(ta.name, func(t *testing.T) {
			server := ta.build()
			server.RegisterRoute(http.MethodPost, "/echo", func(rc ruts.RequestContext) error {
				first, err := rc.Request().Body()
				if err != nil {
					return err
				}
				second, err := rc.Request().Body()
				if err != nil {
					return err
				}
				names := rc.QueryParams()["name"]
				out := strings.Join(names, ",") + "|" + string(first) + "|" + string(second)
				return rc.Response().Blob(http.StatusCreated, rc.Request().ContentType(), []byte(out))
			})

			req := httptest.NewRequest(http.MethodPost, "/echo?name=sea&name=land", strings.NewReader(`{"a":1}`))
			req.Header.Set("Content-Type", "application/json")
			resp := ta.serve(server, req)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, `sea,land|{"a":1}|{"a":1}`, readAll(t, resp))
		})
	}
}

func TestAdapters_ErrorHandling(t *testing.T) {
	for _, ta := range allAdapters() {
		t.Run(ta.name, func(t *testing.T) {
			server := ta.build()
			server.RegisterRoute(http.MethodGet, "/forbidden", func(rc ruts.RequestContext) error {
				return ruts.NewHTTPError(http.StatusForbidden, "no entry")
			})
			server.RegisterRoute(http.MethodGet, "/broken", func(rc ruts.RequestContext) error {
				return errors.New("broken")
			})

			resp := ta.serve(server, httptest.NewRequest(http.MethodGet, "/forbidden", nil))
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.JSONEq(t, `{"error":"no entry"}`, readAll(t, resp))

			resp = ta.serve(server, httptest.NewRequest(http.MethodGet, "/broken", nil))
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.JSONEq(t, `{"error":"broken"}`, readAll(t, resp))
		})
	}
}

func TestAdapters_Cookies(t *testing.T) {
	for _, ta := range allAdapters() {
		t.Run(ta.name, func(t *testing.T) {
			server := ta.build()
			server.RegisterRoute(http.MethodGet, "/cookie", func(rc ruts.RequestContext) error {
				in, err := rc.Request().Cookie("IN")
				if err != nil {
					return err
				}
				rc.Response().SetCookie(ruts.Cookie{Name: "OUT", Value: in.Value + "!", Path: "/", HttpOnly: true})
				return rc.Response().NoContent(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/cookie", nil)
			req.AddCookie(&http.Cookie{Name: "IN", Value: "mystic"})
			resp := ta.serve(server, req)
			assert.Equal(t, http.StatusNoContent, resp.StatusCode)

			var found *http.Cookie
			for _, c := range resp.Cookies() {
				if c.Name == "OUT" {
					found = c
				}
			}
			require.NotNil(t, found)
			assert.Equal(t, "mystic!", found.Value)
			assert.True(t, found.HttpOnly)
		})
	}
}

func TestAdapters_Stream(t *testing.T) {
	for _, ta := range allAdapters() {
		t.Run(ta.name, func(t *testing.T) {
			server := ta.build()
			server.RegisterRoute(http.MethodGet, "/download", func(rc ruts.RequestContext) error {
				rc.Response().SetHeader("Content-Disposition", `attachment; filename="sea.txt"`)
				return rc.Response().Stream(http.StatusOK, "text/plain", strings.NewReader("over the waves"))
			})

			resp := ta.serve(server, httptest.NewRequest(http.MethodGet, "/download", nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, `attachment; filename="sea.txt"`, resp.Header.Get("Content-Disposition"))
			assert.Equal(t, "over the waves", readAll(t, resp))
		})
	}
}
