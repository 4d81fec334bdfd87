package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignParamsSortsKeys(t *testing.T) {
	c := NewClient("demo", "key", "shhh")

	// Expected serialization: folder=banners&timestamp=1700000000 + secret.
	sum := sha1.Sum([]byte("folder=banners&timestamp=1700000000shhh"))
	want := hex.EncodeToString(sum[:])

	got := c.SignParams(map[string]string{
		"timestamp": "1700000000",
		"folder":    "banners",
	})
	if got != want {
		t.Fatalf("SignParams = %s, want %s", got, want)
	}
}

func TestNewUploadSignature(t *testing.T) {
	c := NewClient("demo", "key", "shhh")
	now := time.Unix(1700000000, 0)

	sig := c.NewUploadSignature("banners", now)

	if sig.Timestamp != 1700000000 {
		t.Errorf("timestamp = %d, want 1700000000", sig.Timestamp)
	}
	if sig.Folder != "banners" {
		t.Errorf("folder = %q, want banners", sig.Folder)
	}
	if sig.APIKey != "key" || sig.CloudName != "demo" {
		t.Errorf("credential fields not copied: %+v", sig)
	}
	if want := c.SignParams(map[string]string{"timestamp": "1700000000", "folder": "banners"}); sig.Signature != want {
		t.Errorf("signature = %s, want %s", sig.Signature, want)
	}
}

func TestDestroySendsSignedForm(t *testing.T) {
	var gotPath string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient("demo", "key", "shhh")
	c.baseURL = srv.URL

	if err := c.Destroy(context.Background(), "banners/abc123"); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	if gotPath != "/demo/image/destroy" {
		t.Errorf("path = %s, want /demo/image/destroy", gotPath)
	}
	if gotForm["public_id"] != "banners/abc123" {
		t.Errorf("public_id = %q", gotForm["public_id"])
	}
	want := c.SignParams(map[string]string{
		"public_id": "banners/abc123",
		"timestamp": gotForm["timestamp"],
	})
	if gotForm["signature"] != want {
		t.Errorf("signature = %q, want %q", gotForm["signature"], want)
	}
}

func TestDestroyUnconfigured(t *testing.T) {
	c := NewClient("", "", "")
	if err := c.Destroy(context.Background(), "x"); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}
