package metrics

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.VocabSize.Set(42)
	m.SplitAssignments.WithLabelValues("rest").Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"prepro_vocab_size 42", `prepro_split_assignments_total{split="rest"} 3`} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestNewUsesPrivateRegistry(t *testing.T) {
	// Registering the same collectors twice on one registry would panic.
	New()
	New()
}

func TestServe(t *testing.T) {
	m := New()
	shutdown, err := m.Serve(0)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestServePortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if _, err := New().Serve(ln.Addr().(*net.TCPAddr).Port); err == nil {
		t.Error("expected an error for a port already in use")
	}
}
