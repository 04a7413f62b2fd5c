package main

import (
	"testing"
	"time"
)

func TestParseSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "10", want: 10 * time.Second},
		{in: "0.5", want: 500 * time.Millisecond},
		{in: "0", want: 0},
		{in: "1m30s", want: 90 * time.Second},
		{in: "250ms", want: 250 * time.Millisecond},
		{in: "", wantErr: true},
		{in: "ten", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := parseSeconds(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSeconds(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSeconds(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestSecondsValue(t *testing.T) {
	t.Parallel()

	v := newSecondsValue(time.Second)
	if v.String() != "1s" {
		t.Errorf("unexpected default %q", v.String())
	}
	if err := v.Set("2.5"); err != nil {
		t.Fatal(err)
	}
	if time.Duration(*v) != 2500*time.Millisecond {
		t.Errorf("unexpected value %s", v)
	}
	if v.Type() != "duration" {
		t.Errorf("unexpected type %q", v.Type())
	}
}
