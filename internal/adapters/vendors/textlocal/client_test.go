package textlocal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"golang-notify-dispatch/internal/config"
	"golang-notify-dispatch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.ProviderConfig {
	return config.ProviderConfig{
		Name:           config.ProviderTextLocal,
		Priority:       1,
		Credentials:    map[string]string{"api_key": "tl-key"},
		MaxRetries:     3,
		TimeoutSeconds: 5,
	}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(testConfig())
	require.NoError(t, err)
	client.SetBaseURL(srv.URL + "/send/")
	return client
}

func TestNew_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Credentials = map[string]string{}

	_, err := New(cfg)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSend_Success(t *testing.T) {
	var mu sync.Mutex
	forms := map[string]map[string]string{}

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mu.Lock()
		forms[r.PostForm.Get("numbers")] = map[string]string{
			"apikey":  r.PostForm.Get("apikey"),
			"sender":  r.PostForm.Get("sender"),
			"message": r.PostForm.Get("message"),
		}
		mu.Unlock()
		w.Write([]byte(`{"status":"success","message_id":"tl-77"}`))
	}))

	n := domain.NewSMSNotification(domain.TypeTransactional, "SENDER")
	n.AddItem(domain.NewItem("9876543210", "hello"))
	n.AddItem(domain.NewItem("9876543211", "hello"))

	require.NoError(t, client.Send(context.Background(), n, n.Items))

	for _, item := range n.Items {
		assert.Equal(t, domain.StatusSent, item.Status)
		assert.Equal(t, "tl-77", item.ExtID)
	}

	require.Len(t, forms, 2)
	assert.Equal(t, "tl-key", forms["9876543210"]["apikey"])
	assert.Equal(t, "SENDER", forms["9876543210"]["sender"])
	assert.Equal(t, "hello", forms["9876543210"]["message"])
}

func TestSend_SenderFallback(t *testing.T) {
	var gotSender string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotSender = r.PostForm.Get("sender")
		w.Write([]byte(`{"status":"success","message_id":"tl-1"}`))
	}))

	n := domain.NewSMSNotification(domain.TypeTransactional, "")
	n.AddItem(domain.NewItem("9876543210", "hello"))

	require.NoError(t, client.Send(context.Background(), n, n.Items))
	assert.Equal(t, "TXTLCL", gotSender)
}

func TestSend_ErrorsInBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"code":3,"message":"Invalid login details"}]}`))
	}))

	n := domain.NewSMSNotification(domain.TypeTransactional, "SENDER")
	item := domain.NewItem("9876543210", "hello")
	n.AddItem(item)

	require.NoError(t, client.Send(context.Background(), n, n.Items))

	assert.Equal(t, domain.StatusFailed, item.Status)
	assert.Contains(t, item.Error, "Invalid login details")
}

func TestSend_MessageIDCamelCase(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","messageId":"tl-camel"}`))
	}))

	n := domain.NewSMSNotification(domain.TypeTransactional, "SENDER")
	item := domain.NewItem("9876543210", "hello")
	n.AddItem(item)

	require.NoError(t, client.Send(context.Background(), n, n.Items))
	assert.Equal(t, "tl-camel", item.ExtID)
}

func TestSend_MissingMessageIDUsesPlaceholder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	}))

	n := domain.NewSMSNotification(domain.TypeTransactional, "SENDER")
	item := domain.NewItem("9876543210", "hello")
	n.AddItem(item)

	require.NoError(t, client.Send(context.Background(), n, n.Items))
	assert.Equal(t, "textlocal_sent", item.ExtID)
}

func TestSend_HTTPErrorMarksFailed(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))

	n := domain.NewSMSNotification(domain.TypeTransactional, "SENDER")
	item := domain.NewItem("9876543210", "hello")
	n.AddItem(item)

	require.NoError(t, client.Send(context.Background(), n, n.Items))

	assert.Equal(t, domain.StatusFailed, item.Status)
	assert.Contains(t, item.Error, "TextLocal API error: 502")
}
