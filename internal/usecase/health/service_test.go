package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(nil,
		Ping("cache", &mockPinger{}),
		Provider("model", &mockChecker{}),
		Provider("embedding", &mockChecker{}),
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"cache", "model", "embedding"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_OneFails(t *testing.T) {
	svc := New(nil,
		Ping("cache", &mockPinger{}),
		Provider("model", &mockChecker{err: errors.New("conn refused")}),
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["model"] != CheckError {
		t.Errorf("expected model %q, got %q", CheckError, r.Checks["model"])
	}
	if r.Checks["cache"] != CheckOK {
		t.Errorf("expected cache %q, got %q", CheckOK, r.Checks["cache"])
	}
}

func TestCheck_AllFail(t *testing.T) {
	svc := New(nil,
		Ping("cache", &mockPinger{err: errors.New("db down")}),
		Provider("embedding", &mockChecker{err: errors.New("emb down")}),
	)
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["cache"] != CheckError || r.Checks["embedding"] != CheckError {
		t.Errorf("expected both errors, got %v", r.Checks)
	}
}

func TestCheck_NoComponents(t *testing.T) {
	r := New(nil).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 0 {
		t.Errorf("expected no checks, got %v", r.Checks)
	}
}

func TestCheck_Timeout(t *testing.T) {
	slow := Component{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	svc := New(nil, slow)
	svc.timeout = 10 * time.Millisecond

	r := svc.Check(context.Background())
	if r.Checks["slow"] != CheckError {
		t.Errorf("expected slow %q, got %q", CheckError, r.Checks["slow"])
	}
}
