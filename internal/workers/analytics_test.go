package workers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorturl/internal/models"
	"shorturl/internal/workers"
)

func sampleEvent() models.ClickEvent {
	return models.ClickEvent{
		ShortCode: "abc123",
		Click: models.Click{
			ID:         "click-1",
			ShortURLID: "url-1",
			Timestamp:  time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
			IPAddress:  "203.0.113.1",
			UserAgent:  "curl/8.0",
			Location:   models.UnknownLocation,
		},
	}
}

func TestForwarder_PostsEvent(t *testing.T) {
	received := make(chan models.ClickEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var ev models.ClickEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		received <- ev
	}))
	defer srv.Close()

	f := workers.NewForwarder(srv.URL, time.Second)
	require.NoError(t, f.Forward(sampleEvent()))

	ev := <-received
	assert.Equal(t, "abc123", ev.ShortCode)
	assert.Equal(t, "203.0.113.1", ev.Click.IPAddress)
}

func TestForwarder_EmptyEndpointIsNoop(t *testing.T) {
	f := workers.NewForwarder("", time.Second)
	assert.NoError(t, f.Forward(sampleEvent()))
}

func TestForwarder_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := workers.NewForwarder(srv.URL, time.Second)
	assert.Error(t, f.Forward(sampleEvent()))
}

func TestClickWorkers_DrainChannel(t *testing.T) {
	received := make(chan struct{}, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
	}))
	defer srv.Close()

	events := make(chan models.ClickEvent, 10)
	workers.StartClickWorkers(3, events, workers.NewForwarder(srv.URL, time.Second))

	for i := 0; i < 5; i++ {
		events <- sampleEvent()
	}
	close(events)

	for i := 0; i < 5; i++ {
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for forwarded events")
		}
	}
}
