package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.5, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); !strings.HasPrefix(got, tt.want) {
			t.Errorf("rate %v: expected %s, got %s", tt.rate, tt.want, got)
		}
	}
}

func TestDisabledTracerIsNoop(t *testing.T) {
	tp, err := InitTracer(context.Background(), TracerConfig{Enabled: false}, zerolog.Nop())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	_, span := StartSpan(context.Background(), "preload.run")
	if span.SpanContext().IsValid() {
		t.Fatal("noop provider should not produce valid spans")
	}
	EndSpan(span, errors.New("ignored"))
}
