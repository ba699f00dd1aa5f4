package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openhearth/calendard/internal/app"
	"github.com/openhearth/calendard/internal/clock"
	"github.com/openhearth/calendard/internal/domain"
)

func TestHandleGetEvents(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("MDT", -6*3600)
	resolver := app.NewRangeResolver(loc)
	now := time.Date(2023, 6, 22, 10, 30, 0, 0, time.UTC)
	clk := clock.NewFixed(now)

	event := domain.Event{
		UID:     "ev-1",
		Summary: "Standup",
		Start:   domain.NewDateTime(time.Date(2025, 9, 17, 5, 0, 0, 0, loc)),
		End:     domain.NewDateTime(time.Date(2025, 9, 17, 6, 0, 0, 0, loc)),
	}

	t.Run("single entity string", func(t *testing.T) {
		t.Parallel()

		querier := &stubQuerier{result: singleEntityResult("calendar.work", event)}
		body := `{"entity_id": "calendar.work", "start_date_time": "2025-09-17T04:30:00-06:00", "end_date_time": "2025-09-17T06:30:00-06:00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/calendar/get_events", strings.NewReader(body))
		rec := httptest.NewRecorder()
		HandleGetEvents(resolver, querier, clk)(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(querier.gotIDs) != 1 || querier.gotIDs[0] != "calendar.work" {
			t.Fatalf("expected single entity, got %v", querier.gotIDs)
		}

		var resp map[string]entityEventsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		events := resp["calendar.work"].Events
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Summary != "Standup" {
			t.Fatalf("unexpected event %+v", events[0])
		}
	})

	t.Run("entity list preserves order", func(t *testing.T) {
		t.Parallel()

		querier := &stubQuerier{result: app.QueryResult{Entities: []app.EntityEvents{
			{EntityID: "calendar.b"},
			{EntityID: "calendar.a"},
		}}}
		body := `{"entity_id": ["calendar.b", "calendar.a"], "start_date": "2025-09-17", "end_date": "2025-09-18"}`
		req := httptest.NewRequest(http.MethodPost, "/api/calendar/get_events", strings.NewReader(body))
		rec := httptest.NewRecorder()
		HandleGetEvents(resolver, querier, clk)(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(querier.gotIDs) != 2 || querier.gotIDs[0] != "calendar.b" || querier.gotIDs[1] != "calendar.a" {
			t.Fatalf("expected request order passed through, got %v", querier.gotIDs)
		}

		raw := rec.Body.String()
		var resp map[string]entityEventsResponse
		if err := json.Unmarshal([]byte(raw), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp) != 2 {
			t.Fatalf("expected both entities in response, got %v", resp)
		}

		// The wire object must keep request order, not key order.
		b := strings.Index(raw, `"calendar.b"`)
		a := strings.Index(raw, `"calendar.a"`)
		if b < 0 || a < 0 || b > a {
			t.Fatalf("expected calendar.b before calendar.a in body, got %s", raw)
		}
	})

	t.Run("duration anchors at now", func(t *testing.T) {
		t.Parallel()

		querier := &stubQuerier{result: singleEntityResult("calendar.work")}
		body := `{"entity_id": "calendar.work", "duration": "24:00:00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/calendar/get_events", strings.NewReader(body))
		rec := httptest.NewRecorder()
		HandleGetEvents(resolver, querier, clk)(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !querier.gotRng.Start.Equal(now) {
			t.Fatalf("expected range anchored at now, got %v", querier.gotRng.Start)
		}
		if !querier.gotRng.End.Equal(now.Add(24 * time.Hour)) {
			t.Fatalf("expected 24h range, got %v", querier.gotRng.End)
		}
	})

	t.Run("validation rule becomes error code", func(t *testing.T) {
		t.Parallel()

		querier := &stubQuerier{}
		body := `{"entity_id": "calendar.work", "start_date": "2025-09-17", "start_date_time": "2025-09-17T04:30:00"}`
		req := httptest.NewRequest(http.MethodPost, "/api/calendar/get_events", strings.NewReader(body))
		rec := httptest.NewRecorder()
		HandleGetEvents(resolver, querier, clk)(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		if querier.queried {
			t.Fatal("expected no query on invalid range")
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Code != string(domain.RuleAtMostOneGroup) {
			t.Fatalf("expected code %s, got %s", domain.RuleAtMostOneGroup, resp.Code)
		}
	})

	t.Run("missing entity_id", func(t *testing.T) {
		t.Parallel()

		querier := &stubQuerier{}
		body := `{"start_date": "2025-09-17", "end_date": "2025-09-18"}`
		req := httptest.NewRequest(http.MethodPost, "/api/calendar/get_events", strings.NewReader(body))
		rec := httptest.NewRecorder()
		HandleGetEvents(resolver, querier, clk)(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
		var resp errorResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Code != codeMissingField {
			t.Fatalf("expected code %s, got %s", codeMissingField, resp.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		querier := &stubQuerier{}
		req := httptest.NewRequest(http.MethodPost, "/api/calendar/get_events", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		HandleGetEvents(resolver, querier, clk)(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()

		querier := &stubQuerier{}
		req := httptest.NewRequest(http.MethodGet, "/api/calendar/get_events", nil)
		rec := httptest.NewRecorder()
		HandleGetEvents(resolver, querier, clk)(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status 405, got %d", rec.Code)
		}
	})
}

func TestEntityIDList_Unmarshal(t *testing.T) {
	t.Parallel()

	var single entityIDList
	if err := json.Unmarshal([]byte(`"calendar.work"`), &single); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if len(single) != 1 || single[0] != "calendar.work" {
		t.Fatalf("expected single entity, got %v", single)
	}

	var many entityIDList
	if err := json.Unmarshal([]byte(`["calendar.a", "calendar.b"]`), &many); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(many) != 2 {
		t.Fatalf("expected two entities, got %v", many)
	}

	var bad entityIDList
	if err := json.Unmarshal([]byte(`42`), &bad); err == nil {
		t.Fatal("expected error for non-string entity_id")
	}
}
