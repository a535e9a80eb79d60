package ruts

import (
	"archive/zip"
	"bytes"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamResponse_ToDownloadResource(t *testing.T) {
	resource, err := AsStream("sea.png").Data([]byte("png")).ToDownloadResource()
	require.NoError(t, err)
	assert.Equal(t, "image/png", resource.ContentType)
	assert.Equal(t, http.StatusOK, resource.Status)
	assert.Equal(t, []string{`attachment; filename="sea.png"`}, resource.Headers["Content-Disposition"])
	assert.Equal(t, []byte("png"), resource.Data)

	resource, err = AsStream("land").
		HeaderContentDispositionInline().
		Header("x-piari", "bonvo").
		Status(http.StatusAccepted).
		StreamWithLength(func(w io.Writer) error { return nil }, 42).
		ToDownloadResource()
	require.NoError(t, err)
	assert.Equal(t, ContentTypeOctetStream, resource.ContentType)
	assert.Equal(t, http.StatusAccepted, resource.Status)
	assert.Equal(t, []string{"Content-Disposition", "X-Piari"}, resource.HeaderOrder)
	assert.Equal(t, []string{`inline; filename="land"`}, resource.Headers["Content-Disposition"])
	assert.Equal(t, int64(42), resource.ContentLength)
}

func TestStreamResponse_ZipStreamForcesContentType(t *testing.T) {
	resource, err := AsStream("sea.bin").
		ContentType("text/plain").
		ZipStreamChunked(func(zw *zip.Writer) error { return nil }).
		ToDownloadResource()
	require.NoError(t, err)
	assert.Equal(t, ContentTypeZip, resource.ContentType)
	assert.NotNil(t, resource.ZipStream)
}

func TestStreamResponse_IllegalStates(t *testing.T) {
	noop := func(w io.Writer) error { return nil }
	tests := []struct {
		name     string
		response *StreamResponse
	}{
		{"no file name", AsStream(" ").Data([]byte("a"))},
		{"no payload", AsStream("sea.txt")},
		{"data twice", AsStream("sea.txt").Data([]byte("a")).Data([]byte("b"))},
		{"data then stream", AsStream("sea.txt").Data([]byte("a")).Stream(noop)},
		{"nil stream", AsStream("sea.txt").Stream(nil)},
		{"header twice", AsStream("sea.txt").Header("X-Sea", "1").Header("x-sea", "2").Data(nil)},
		{"undefined", UndefinedStreamResponse()},
		{"modified undefined", UndefinedStreamResponse().Data([]byte("a"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.response.ToDownloadResource()
			assert.True(t, errors.Is(err, ErrStreamIllegalState), "%v", err)
		})
	}

	assert.Nil(t, UndefinedStreamResponse().Err(), "the shared undefined response stays untouched")
}

func TestStreamResponse_EmptyBody(t *testing.T) {
	resource, err := AsStream("sea.txt").AsEmptyBody().ToDownloadResource()
	require.NoError(t, err)
	assert.True(t, resource.EmptyBody)
	assert.Contains(t, resource.ContentType, "text/plain")
}

func TestJSONResponse_Options(t *testing.T) {
	response := AsJSON(map[string]int{"sea": 1}).Status(http.StatusCreated).Header("X-Sea", "land").Pretty()
	assert.Equal(t, http.StatusCreated, response.HTTPStatus().OrElse(0))
	assert.Equal(t, []string{"land"}, response.Headers()["X-Sea"])
	assert.True(t, response.IsPretty())
	assert.False(t, response.IsReturnAsEmptyBody())
	assert.True(t, AsJSON(nil).AsEmptyBody().IsReturnAsEmptyBody())
	assert.False(t, AsJSON(nil).HTTPStatus().IsPresent())
}

func TestHTMLTemplateRenderer(t *testing.T) {
	fsys := fstest.MapFS{
		"harbor/board.html": {Data: []byte(`<h1>{{upper .name}}</h1>`)},
	}
	renderer := NewHTMLTemplateRenderer(fsys, template.FuncMap{"upper": strings.ToUpper})

	var out bytes.Buffer
	require.NoError(t, renderer.Render(&out, "harbor/board.html", map[string]any{"name": "<kobe>"}))
	assert.Equal(t, "<h1>&lt;KOBE&gt;</h1>", out.String())

	out.Reset()
	require.NoError(t, renderer.Render(&out, "harbor/board.html", map[string]any{"name": "sea"}))
	assert.Equal(t, "<h1>SEA</h1>", out.String())

	assert.Error(t, renderer.Render(&out, "harbor/missing.html", nil))
}

func TestUserMessages(t *testing.T) {
	messages := NewUserMessages().
		Add("name", UserMessageByKey("constraints.required.message")).
		Add(GlobalProperty, UserMessageByKey("errors.sea.closed", "dockside")).
		Add("name", UserMessageByKey("constraints.size.message", 1, 10))

	assert.Equal(t, 3, messages.Size())
	assert.False(t, messages.IsEmpty())
	assert.Equal(t, []string{"name", GlobalProperty}, messages.Properties())
	assert.Len(t, messages.Property("name"), 2)
	assert.True(t, messages.HasMessageOf("name", "constraints.size.message"))
	assert.False(t, messages.HasMessageOf(GlobalProperty, "constraints.size.message"))
	assert.Equal(t, "constraints.required.message", messages.All()[0].Key)
	assert.Equal(t, "errors.sea.closed", messages.All()[2].Key, "grouped by property in first-added order")
	assert.Len(t, messages.ToMap(), 2)
	assert.Equal(t, "direct:over the waves", UserMessageAsDirect("over the waves").String())
}

func TestNewMessagingApplicationError(t *testing.T) {
	t.Run("converts messages", func(t *testing.T) {
		messages := NewUserMessages().Add(GlobalProperty, UserMessageByKey("errors.no.stock", "sea"))
		cause := errors.New("stock 0")
		appErr, err := NewMessagingApplicationError("no stock", messages, cause)
		require.NoError(t, err)
		assert.Equal(t, []ApplicationMessage{{Key: "errors.no.stock", Values: []any{"sea"}}}, appErr.Messages)
		assert.Same(t, messages, appErr.UserMessages())
		assert.True(t, errors.Is(appErr, cause))

		found, ok := AsApplicationError(appErr)
		require.True(t, ok)
		assert.Equal(t, "no stock", found.DebugMsg)
	})
	t.Run("nil messages", func(t *testing.T) {
		_, err := NewMessagingApplicationError("sea", nil, nil)
		assert.True(t, errors.Is(err, ErrNilUserMessages))
	})
	t.Run("empty messages", func(t *testing.T) {
		_, err := NewMessagingApplicationError("sea", NewUserMessages(), nil)
		assert.True(t, errors.Is(err, ErrEmptyUserMessages))
	})
	t.Run("direct message", func(t *testing.T) {
		messages := NewUserMessages().
			Add("name", UserMessageByKey("errors.ok")).
			Add("name", UserMessageAsDirect("not a key"))
		_, err := NewMessagingApplicationError("sea", messages, nil)
		assert.True(t, errors.Is(err, ErrNonResourceUserMessages))
	})
}

func TestForcedIllegalTransitionApplicationError(t *testing.T) {
	err := NewForcedIllegalTransitionApplicationError("double submit", "order.confirm")
	appErr, ok := AsApplicationError(err)
	require.True(t, ok)
	assert.Equal(t, IllegalTransitionMessageKey, appErr.Messages[0].Key)
	assert.Equal(t, []any{"order.confirm"}, appErr.Messages[0].Values)
}

func TestQueryMap(t *testing.T) {
	q := NewQueryMap(map[string][]string{
		"name": {"sea", "land"},
		"page": {"3"},
		"bad":  {"x"},
		"on":   {"Yes"},
	})
	assert.Equal(t, "sea", q.Get("name"))
	assert.Equal(t, []string{"sea", "land"}, q.GetAll("name"))
	assert.Equal(t, "piari", q.GetDefault("missing", "piari"))
	assert.Equal(t, 3, q.GetInt("page"))
	assert.Equal(t, 7, q.GetIntDefault("bad", 7))
	assert.True(t, q.GetBool("on"))
	assert.False(t, q.GetBool("name"))
	assert.True(t, q.Has("bad"))
	assert.False(t, q.Has("missing"))
}

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	attributes := map[string]any{"user": "mystic"}
	store.Save("s1", attributes)
	attributes["user"] = "changed"

	loaded, ok := store.Load("s1")
	require.True(t, ok)
	assert.Equal(t, "mystic", loaded["user"])

	now = now.Add(59 * time.Second)
	_, ok = store.Load("s1")
	assert.True(t, ok, "loading refreshes the last access")

	now = now.Add(2 * time.Minute)
	_, ok = store.Load("s1")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	store.Save("s2", nil)
	store.Delete("s2")
	_, ok = store.Load("s2")
	assert.False(t, ok)
}

func TestLoadWebConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadWebConfig(t.TempDir() + "/missing.env")
		require.NoError(t, err)
		assert.Equal(t, "echo", cfg.Adapter)
		assert.Equal(t, ":8080", cfg.Addr())
		assert.Equal(t, "web", cfg.WebPackage)
		assert.Equal(t, "/metrics", cfg.MetricsPath)
		assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	})
	t.Run("environment", func(t *testing.T) {
		t.Setenv("RUTS_ADAPTER", "Gin")
		t.Setenv("RUTS_PORT", "9090")
		t.Setenv("RUTS_LOG_LEVEL", "warning")
		t.Setenv("RUTS_SQL_COUNT_LIMIT", "25")
		t.Setenv("RUTS_SHUTDOWN_TIMEOUT", "5s")
		cfg, err := LoadWebConfig(t.TempDir() + "/missing.env")
		require.NoError(t, err)
		assert.Equal(t, "gin", cfg.Adapter)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, 25, cfg.SQLCountLimit)
		assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	})
	t.Run("invalid", func(t *testing.T) {
		tests := map[string]string{
			"RUTS_ADAPTER":      "tomcat",
			"RUTS_LOG_LEVEL":    "loud",
			"RUTS_WEB_PACKAGE":  "Web",
			"RUTS_METRICS_PATH": "metrics",
		}
		for key, value := range tests {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := LoadWebConfig(t.TempDir() + "/missing.env")
				assert.Error(t, err)
			})
		}
	})
}
