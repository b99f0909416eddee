package fixture_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrdadan/i18ncheck/internal/fixture"
)

func setupTestApp(t *testing.T, opts fixture.Options) *fiber.App {
	t.Helper()
	app, err := fixture.New(opts)
	require.NoError(t, err)
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func get(t *testing.T, app *fiber.App, path string) (int, envelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return resp.StatusCode, env
}

func TestHealthCheck(t *testing.T) {
	status, env := get(t, setupTestApp(t, fixture.Options{}), "/health")
	assert.Equal(t, 200, status)
	assert.True(t, env.Success)
}

func TestIndexServesPage(t *testing.T) {
	app := setupTestApp(t, fixture.Options{})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `id="heading"`)
}

func TestMessages(t *testing.T) {
	app := setupTestApp(t, fixture.Options{})

	tests := []struct {
		lang    string
		heading string
		empty   string
	}{
		{lang: "ja", heading: "商品一覧", empty: "商品はまだありません。"},
		{lang: "en", heading: "Product List", empty: "No products yet."},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			status, env := get(t, app, "/api/messages/"+tt.lang)
			require.Equal(t, 200, status)

			var m fixture.Messages
			require.NoError(t, json.Unmarshal(env.Data, &m))
			assert.Equal(t, tt.heading, m.Heading)
			assert.Equal(t, tt.empty, m.Empty)
		})
	}
}

func TestHeadingsDifferBetweenLanguages(t *testing.T) {
	ja, _ := fixture.MessagesFor("ja")
	en, _ := fixture.MessagesFor("en")
	assert.NotEqual(t, ja.Heading, en.Heading)
}

func TestMessagesUnknownLanguage(t *testing.T) {
	status, env := get(t, setupTestApp(t, fixture.Options{}), "/api/messages/xx")
	assert.Equal(t, 404, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "xx")
}

func TestProducts(t *testing.T) {
	t.Run("empty by default", func(t *testing.T) {
		_, env := get(t, setupTestApp(t, fixture.Options{}), "/api/products")
		var products []fixture.Product
		require.NoError(t, json.Unmarshal(env.Data, &products))
		assert.Empty(t, products)
	})

	t.Run("seeded and localized", func(t *testing.T) {
		app := setupTestApp(t, fixture.Options{SeedItems: 3})

		_, ja := get(t, app, "/api/products?lang=ja")
		_, en := get(t, app, "/api/products?lang=en")

		var jaProducts, enProducts []fixture.Product
		require.NoError(t, json.Unmarshal(ja.Data, &jaProducts))
		require.NoError(t, json.Unmarshal(en.Data, &enProducts))

		require.Len(t, jaProducts, 3)
		require.Len(t, enProducts, 3)
		assert.Equal(t, "商品 1", jaProducts[0].Name)
		assert.Equal(t, "Product 1", enProducts[0].Name)
		assert.Equal(t, jaProducts[0].ID, enProducts[0].ID)
	})

	t.Run("unknown language", func(t *testing.T) {
		status, _ := get(t, setupTestApp(t, fixture.Options{}), "/api/products?lang=xx")
		assert.Equal(t, 400, status)
	})
}

func TestLanguages(t *testing.T) {
	t.Run("switcher enabled", func(t *testing.T) {
		_, env := get(t, setupTestApp(t, fixture.Options{DefaultLang: "en"}), "/api/languages")

		var data struct {
			Default   string                   `json:"default"`
			Switcher  bool                     `json:"switcher"`
			Languages []fixture.LanguageOption `json:"languages"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "en", data.Default)
		assert.True(t, data.Switcher)
		assert.Len(t, data.Languages, 2)
	})

	t.Run("switcher disabled", func(t *testing.T) {
		_, env := get(t, setupTestApp(t, fixture.Options{DisableSwitcher: true}), "/api/languages")

		var data struct {
			Switcher bool `json:"switcher"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.False(t, data.Switcher)
	})
}

func TestNewRejectsUnknownDefault(t *testing.T) {
	_, err := fixture.New(fixture.Options{DefaultLang: "fr"})
	assert.Error(t, err)
}

func TestLatency(t *testing.T) {
	app := setupTestApp(t, fixture.Options{Latency: 100 * time.Millisecond})

	start := time.Now()
	status, _ := get(t, app, "/api/messages/en")
	assert.Equal(t, 200, status)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestServe(t *testing.T) {
	app := setupTestApp(t, fixture.Options{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fixture.Serve(ctx, app, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == 200
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestHeaders(t *testing.T) {
	app := setupTestApp(t, fixture.Options{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/messages/ja", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get("X-Request-ID"))
}
