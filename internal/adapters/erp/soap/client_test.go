package soap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"simpleit/simpledfe_core/internal/core/erp"
	"simpleit/simpledfe_core/internal/infrastructure/cache"
	"simpleit/simpledfe_core/internal/testutil"
)

const successResponse = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <SaveRecordResponse xmlns="http://www.totvs.com/">
      <SaveRecordResult>1;4821</SaveRecordResult>
    </SaveRecordResponse>
  </s:Body>
</s:Envelope>`

const faultResponse = `<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <s:Fault>
      <faultcode>s:Server</faultcode>
      <faultstring>Registro já existente para a coligada</faultstring>
    </s:Fault>
  </s:Body>
</s:Envelope>`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *cache.DebugBuffer, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	buf := cache.NewDebugBuffer(10)
	cfg := Config{Endpoint: srv.URL, Username: "integ.user", Password: "s3cret", CodColigada: "1"}
	return NewClient(cfg, srv.Client(), buf, testutil.NewNullLogger()), buf, srv
}

func TestPreCadastro_Success(t *testing.T) {
	var gotAuth, gotSOAPAction, gotContentType string
	var gotBody string

	client, buf, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSOAPAction = r.Header.Get("SOAPAction")
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(successResponse))
	})

	res := client.PreCadastro(context.Background(), sampleEmpresa())

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Message != msgSuccess {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if res.ERPCode != "4821" {
		t.Errorf("expected vendor code 4821, got %q", res.ERPCode)
	}
	if !strings.HasPrefix(gotAuth, "Basic ") {
		t.Errorf("expected basic auth, got %q", gotAuth)
	}
	if gotSOAPAction != `""` {
		t.Errorf("unexpected SOAPAction: %q", gotSOAPAction)
	}
	if gotContentType != "text/xml; charset=utf-8" {
		t.Errorf("unexpected content type: %q", gotContentType)
	}
	if !strings.Contains(gotBody, "<tot:SaveRecord>") {
		t.Error("request body is not a SaveRecord envelope")
	}

	entries := buf.Get("12345678000195")
	if len(entries) != 1 || !entries[0].Success || entries[0].Operation != "SaveRecord" {
		t.Errorf("expected one successful debug entry, got %+v", entries)
	}
}

func TestPreCadastro_SoapFault(t *testing.T) {
	client, buf, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(faultResponse))
	})

	res := client.PreCadastro(context.Background(), sampleEmpresa())

	if res.Success {
		t.Fatal("fault response must not be a success")
	}
	if res.Message != "Erro do ERP: Registro já existente para a coligada" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if entries := buf.Get("12345678000195"); len(entries) != 1 || entries[0].Success {
		t.Errorf("expected one failed debug entry, got %+v", entries)
	}
}

func TestPreCadastro_StatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
	}{
		{"not found", http.StatusNotFound, msgNotFound},
		{"unauthorized", http.StatusUnauthorized, msgAuth},
		{"forbidden", http.StatusForbidden, msgAuth},
		{"server error", http.StatusInternalServerError, msgServerError},
		{"bad gateway", http.StatusBadGateway, msgServerError},
		{"other", http.StatusTeapot, "Erro na requisição ao ERP (status 418)."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			res := client.PreCadastro(context.Background(), sampleEmpresa())
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Message != tt.message {
				t.Errorf("status %d: expected %q, got %q", tt.status, tt.message, res.Message)
			}
		})
	}
}

func TestPreCadastro_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	cfg := Config{Endpoint: srv.URL, Username: "u", Password: "p"}
	client := NewClient(cfg, nil, nil, testutil.NewNullLogger())

	res := client.PreCadastro(context.Background(), sampleEmpresa())
	if res.Success || res.Message != msgConnectivity {
		t.Errorf("expected connectivity failure, got %+v", res)
	}
}

func TestPreCadastro_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	cfg := Config{Endpoint: srv.URL, Username: "u", Password: "p"}
	client := NewClient(cfg, nil, nil, testutil.NewNullLogger())

	for i := 0; i < 5; i++ {
		client.PreCadastro(context.Background(), sampleEmpresa())
	}
	if client.breaker.currentState() != breakerOpen {
		t.Fatal("breaker should be open after consecutive transport failures")
	}

	res := client.PreCadastro(context.Background(), sampleEmpresa())
	if res.Success || res.Message != msgConnectivity {
		t.Errorf("open breaker must fail fast with connectivity message, got %+v", res)
	}
}

func TestExtractVendorCode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"semicolon pair", "<SaveRecordResult>1;4821</SaveRecordResult>", "4821"},
		{"single component", "<SaveRecordResult>4821</SaveRecordResult>", ""},
		{"codcfo fallback", "<retorno><CODCFO>77</CODCFO></retorno>", "77"},
		{"pair with spaces", "<SaveRecordResult> 1 ; 99 </SaveRecordResult>", "99"},
		{"empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractVendorCode(tt.body); got != tt.want {
				t.Errorf("extractVendorCode(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := newCircuitBreaker(2, 10*time.Millisecond)
	fail := func() error { return context.DeadlineExceeded }
	ok := func() error { return nil }

	cb.Execute(context.Background(), fail)
	cb.Execute(context.Background(), fail)
	if cb.currentState() != breakerOpen {
		t.Fatal("breaker should open after max failures")
	}
	if err := cb.Execute(context.Background(), ok); err != ErrBreakerOpen {
		t.Fatalf("expected fast failure during cooldown, got %v", err)
	}

	time.Sleep(15 * time.Millisecond)
	if err := cb.Execute(context.Background(), ok); err != nil {
		t.Fatalf("probe after cooldown should run, got %v", err)
	}
	if cb.currentState() != breakerClosed {
		t.Error("successful probe should close the breaker")
	}
}

var _ erp.Service = (*Client)(nil)
