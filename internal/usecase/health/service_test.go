package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockGenerationChecker struct {
	err error
}

func (m *mockGenerationChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockGenerationChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy || !r.Healthy() {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["generation"] != CheckOK {
		t.Errorf("expected generation %q, got %q", CheckOK, r.Checks["generation"])
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("conn refused")}, &mockGenerationChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if r.Checks["generation"] != CheckOK {
		t.Errorf("expected generation %q, got %q", CheckOK, r.Checks["generation"])
	}
}

func TestCheck_GenerationError(t *testing.T) {
	svc := New(&mockStorePinger{}, &mockGenerationChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["generation"] != CheckError {
		t.Errorf("expected generation %q, got %q", CheckError, r.Checks["generation"])
	}
}

func TestCheck_BothFail(t *testing.T) {
	svc := New(
		&mockStorePinger{err: errors.New("db down")},
		&mockGenerationChecker{err: errors.New("gen down")},
	)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Error("expected database error")
	}
	if r.Checks["generation"] != CheckError {
		t.Error("expected generation error")
	}
}

func TestCheck_NoGeneration(t *testing.T) {
	svc := New(&mockStorePinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if _, ok := r.Checks["generation"]; ok {
		t.Error("generation check should be absent when generation is nil")
	}
}

func TestCheck_NoGeneration_DBError(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("fail")}, nil)
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Error("expected database error")
	}
	if _, ok := r.Checks["generation"]; ok {
		t.Error("generation check should be absent when generation is nil")
	}
}

type hangingChecker struct{}

func (hangingChecker) HealthCheck(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCheck_SlowGenerationTimesOut(t *testing.T) {
	svc := New(&mockStorePinger{}, hangingChecker{}).WithProbeTimeout(20 * time.Millisecond)

	start := time.Now()
	r := svc.Check(context.Background())

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("probe not bounded, took %s", elapsed)
	}
	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks[ComponentGeneration] != CheckError {
		t.Errorf("expected generation %q, got %q", CheckError, r.Checks[ComponentGeneration])
	}
}

func TestWithProbeTimeout_IgnoresNonPositive(t *testing.T) {
	svc := New(&mockStorePinger{}, nil).WithProbeTimeout(0)
	if svc.probeTimeout != defaultProbeTimeout {
		t.Errorf("expected default timeout, got %s", svc.probeTimeout)
	}
}
