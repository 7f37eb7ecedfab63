package ledgerfeature

import (
	"context"
	"errors"
	"net/http"
	"testing"

	ledgerstore "github.com/dalemusser/stratadelivery/internal/app/store/ledger"
	"github.com/dalemusser/stratadelivery/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

const testKey = "test-key"

type fakeStore struct {
	entries   []ledgerstore.Entry
	byID      map[string]*ledgerstore.Entry
	err       error
	gotClass  string
	gotLimit  int
	callCount int
}

func (f *fakeStore) RecentErrors(_ context.Context, class string, limit int) ([]ledgerstore.Entry, error) {
	f.callCount++
	f.gotClass = class
	f.gotLimit = limit
	return f.entries, f.err
}

func (f *fakeStore) GetByRequestID(_ context.Context, id string) (*ledgerstore.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.byID[id]
	if !ok {
		return nil, ledgerstore.ErrNotFound
	}
	return e, nil
}

func get(h http.Handler, path string) *testutil.ResponseRecorder {
	return testutil.Serve(h, testutil.APIRequest(http.MethodGet, path, testKey, ""))
}

func TestServeErrors(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		storeErr  error
		wantCode  int
		wantClass string
		wantLimit int
	}{
		{name: "defaults", path: "/errors", wantCode: http.StatusOK},
		{name: "filtered", path: "/errors?class=conflict&limit=5", wantCode: http.StatusOK, wantClass: "conflict", wantLimit: 5},
		{name: "bad limit", path: "/errors?limit=abc", wantCode: http.StatusBadRequest},
		{name: "zero limit", path: "/errors?limit=0", wantCode: http.StatusBadRequest},
		{name: "store failure", path: "/errors", storeErr: errors.New("mongo down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{
				entries: []ledgerstore.Entry{{RequestID: "r1", StatusCode: 403, ErrorClass: "conflict"}},
				err:     tt.storeErr,
			}
			rec := get(Routes(NewHandler(store, zap.NewNop()), testKey, zap.NewNop()), tt.path)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if store.gotClass != tt.wantClass || store.gotLimit != tt.wantLimit {
				t.Errorf("RecentErrors(%q, %d), want (%q, %d)", store.gotClass, store.gotLimit, tt.wantClass, tt.wantLimit)
			}

			var body struct {
				Entries []ledgerstore.Entry `json:"entries"`
			}
			rec.DecodeJSON(t, &body)
			if diff := cmp.Diff([]string{"r1"}, []string{body.Entries[0].RequestID}); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServeEntry(t *testing.T) {
	store := &fakeStore{byID: map[string]*ledgerstore.Entry{
		"abc": {RequestID: "abc", Method: "POST", Path: "/api/1.0/organise/runfolder/x", StatusCode: 200},
	}}
	h := Routes(NewHandler(store, zap.NewNop()), testKey, zap.NewNop())

	rec := get(h, "/abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got ledgerstore.Entry
	rec.DecodeJSON(t, &got)
	if got.Method != "POST" || got.StatusCode != 200 {
		t.Errorf("entry = %s %d, want POST 200", got.Method, got.StatusCode)
	}

	if rec := get(h, "/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	store.err = errors.New("mongo down")
	if rec := get(h, "/abc"); rec.Code != http.StatusInternalServerError {
		t.Errorf("store failure: status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestRoutes_RequiresAPIKey(t *testing.T) {
	h := Routes(NewHandler(&fakeStore{}, zap.NewNop()), testKey, zap.NewNop())
	rec := testutil.Serve(h, testutil.APIRequest(http.MethodGet, "/errors", "", ""))
	rec.AssertStatus(t, http.StatusUnauthorized)
}
