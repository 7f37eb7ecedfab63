package testutil

import (
	"io"
	"net/http"
	"testing"
)

func TestAPIRequest(t *testing.T) {
	req := APIRequest(http.MethodPost, "/organise/runfolder/rf", "k", `{"force":true}`)
	if got := req.Header.Get("Authorization"); got != "Bearer k" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer k")
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	bare := APIRequest(http.MethodGet, "/runs", "", "")
	if got := bare.Header.Get("Authorization"); got != "" {
		t.Errorf("Authorization = %q, want none", got)
	}
	if b, _ := io.ReadAll(bare.Body); len(b) != 0 {
		t.Errorf("body = %q, want empty", b)
	}
}

func TestServe(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, `{"status":"brewing"}`)
	})
	rec := Serve(h, APIRequest(http.MethodGet, "/", "", ""))
	rec.AssertStatus(t, http.StatusTeapot)
	rec.AssertContains(t, "brewing")

	var body struct {
		Status string `json:"status"`
	}
	rec.DecodeJSON(t, &body)
	if body.Status != "brewing" {
		t.Errorf("status = %q, want brewing", body.Status)
	}
}
