package resend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"simpleit/simpledfe_core/internal/core/email"
	"simpleit/simpledfe_core/internal/testutil"
)

func TestSend(t *testing.T) {
	var gotAuth string
	var gotBody sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "re_test_key", "SimpleDFe <noreply@simpledfe.com>", testutil.NewNullLogger())
	err := c.Send(context.Background(), email.Message{
		To:      "maria@example.com",
		Subject: "Bem-vindo",
		HTML:    "<p>Olá</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer re_test_key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotBody.From != "SimpleDFe <noreply@simpledfe.com>" || len(gotBody.To) != 1 || gotBody.To[0] != "maria@example.com" {
		t.Errorf("unexpected payload: %+v", gotBody)
	}
}

func TestSend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "noreply@simpledfe.com", testutil.NewNullLogger())
	if err := c.Send(context.Background(), email.Message{To: "x@y.com"}); err == nil {
		t.Error("expected error on 4xx status")
	}
}
