package notifications

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureServer(t *testing.T) (*httptest.Server, *[][]byte) {
	t.Helper()
	var bodies [][]byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func TestSendGenericPostsEvent(t *testing.T) {
	srv, bodies := captureServer(t)

	sender := NewWebhookSender()
	evt := NewEvent(EventScanCompleted, "Scan completed", "2 roots scanned")
	err := sender.Send(WebhookTarget{Name: "test", Kind: "generic", URL: srv.URL}, evt)
	require.NoError(t, err)

	require.Len(t, *bodies, 1)
	var got Event
	require.NoError(t, json.Unmarshal((*bodies)[0], &got))
	assert.Equal(t, evt.ID, got.ID)
	assert.Equal(t, EventScanCompleted, got.Type)
	assert.Equal(t, "Scan completed", got.Title)
	assert.Equal(t, "2 roots scanned", got.Message)
}

func TestSendDiscordWrapsInEmbed(t *testing.T) {
	srv, bodies := captureServer(t)

	sender := NewWebhookSender()
	evt := NewEvent(EventItemImported, "Imported", "Example (2020)")
	require.NoError(t, sender.Send(WebhookTarget{Kind: "discord", URL: srv.URL}, evt))

	require.Len(t, *bodies, 1)
	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal((*bodies)[0], &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, "Imported", payload.Embeds[0].Title)
	assert.Equal(t, "Example (2020)", payload.Embeds[0].Description)
}

func TestSendSlackFormatsText(t *testing.T) {
	srv, bodies := captureServer(t)

	sender := NewWebhookSender()
	evt := NewEvent(EventScanSkipped, "Root missing", "/media/scenes")
	require.NoError(t, sender.Send(WebhookTarget{Kind: "slack", URL: srv.URL}, evt))

	require.Len(t, *bodies, 1)
	var payload struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal((*bodies)[0], &payload))
	assert.Equal(t, "*Root missing*\n/media/scenes", payload.Text)
}

func TestSendReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	sender := NewWebhookSender()
	err := sender.Send(WebhookTarget{Kind: "generic", URL: srv.URL}, NewEvent(EventScanCompleted, "t", "m"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNilDispatcherAndNoTargetsAreSafe(t *testing.T) {
	var d *Dispatcher
	d.Publish(NewEvent(EventScanCompleted, "t", "m"))

	empty := NewDispatcher(NewWebhookSender(), nil)
	empty.Publish(NewEvent(EventScanCompleted, "t", "m"))
}
