package events

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurv-15/ai-invoice-track/internal/realtime"
)

func TestHandler_Stream(t *testing.T) {
	hub := realtime.NewHub()

	r := chi.NewRouter()
	r.Route("/events", NewHandler(hub).Routes)

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events/?table=invoices&status=pending", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	id := uuid.New()
	hub.Publish(realtime.Change{Table: realtime.TableReminders, Op: "INSERT", ID: uuid.New()})
	hub.Publish(realtime.Change{Table: realtime.TableInvoices, Op: "UPDATE", ID: uuid.New(), Status: "approved"})
	hub.Publish(realtime.Change{Table: realtime.TableInvoices, Op: "INSERT", ID: id, Status: "pending"})

	scanner := bufio.NewScanner(resp.Body)

	var data string
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}

	var got realtime.Change
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "pending", got.Status)

	cancel()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHandler_UnknownTable(t *testing.T) {
	hub := realtime.NewHub()

	r := chi.NewRouter()
	r.Route("/events", NewHandler(hub).Routes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/?table=profiles", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, hub.Len())
}
