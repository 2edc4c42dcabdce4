package mcp

import (
	"math"
	"testing"
)

func TestOptionalID(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    int64
		wantNil bool
		wantErr bool
	}{
		{name: "absent", raw: nil, wantNil: true},
		{name: "number", raw: float64(42), want: 42},
		{name: "string", raw: "7", want: 7},
		{name: "fraction", raw: 1.5, wantErr: true},
		{name: "zero", raw: float64(0), wantErr: true},
		{name: "negative", raw: float64(-3), wantErr: true},
		{name: "max int64 rounds out of range", raw: float64(math.MaxInt64), wantErr: true},
		{name: "huge", raw: 1e300, wantErr: true},
		{name: "huge negative", raw: -1e300, wantErr: true},
		{name: "largest exact below 2^63", raw: float64(1 << 62), want: 1 << 62},
		{name: "bool", raw: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := optionalID(map[string]any{"feedback_id": tt.raw}, "feedback_id")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", *got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %d", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Fatalf("got %v, want %d", got, tt.want)
			}
		})
	}
}
