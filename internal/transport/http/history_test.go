package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/cimillas/item-reservations/internal/domain"
)

func TestHandleListHistory_Golden(t *testing.T) {
	t.Parallel()

	camera := "Camera"
	bob := "Bob"
	svc := &stubHistory{entries: []domain.HistoryEntry{
		{
			Record: domain.HistoryRecord{ID: "h-3", Seq: 3, Action: domain.ActionReserveFromQueue, ItemID: "item-1", UserID: "user-2", At: testNow.Add(2 * time.Minute)},
			Item:   domain.ResolveRef("item-1", &camera),
			User:   domain.ResolveRef("user-2", &bob),
		},
		{
			Record: domain.HistoryRecord{ID: "h-2", Seq: 2, Action: domain.ActionReturnExpired, ItemID: "item-1", UserID: "user-1", At: testNow.Add(2 * time.Minute)},
			Item:   domain.ResolveRef("item-1", &camera),
			User:   domain.ResolveRef("user-1", nil),
		},
		{
			Record: domain.HistoryRecord{ID: "h-1", Seq: 1, Action: domain.ActionReserve, ItemID: "item-gone", UserID: "user-1", At: testNow},
			Item:   domain.ResolveRef("item-gone", nil),
			User:   domain.ResolveRef("user-1", nil),
		},
	}}
	req := httptest.NewRequest(http.MethodGet, "/admin/history", nil)
	rec := httptest.NewRecorder()

	HandleListHistory(svc, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "history_listing", rec.Body.Bytes())
}

func TestHandleListHistory_PassesFilter(t *testing.T) {
	t.Parallel()

	svc := &stubHistory{}
	req := httptest.NewRequest(http.MethodGet, "/admin/history?item_id=item-1&user_id=user-2", nil)
	rec := httptest.NewRecorder()

	HandleListHistory(svc, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.filter.ItemID != "item-1" || svc.filter.UserID != "user-2" {
		t.Fatalf("unexpected filter %+v", svc.filter)
	}
}

func TestHandleListHistory_InvalidFilter(t *testing.T) {
	t.Parallel()

	svc := &stubHistory{err: domain.ErrInvalidID}
	req := httptest.NewRequest(http.MethodGet, "/admin/history?item_id=nope", nil)
	rec := httptest.NewRecorder()

	HandleListHistory(svc, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
