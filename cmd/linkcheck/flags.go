package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// secondsValue is a duration flag that also accepts a bare number of
// seconds, so "--delay 0.5" and "--delay 500ms" mean the same thing.
type secondsValue time.Duration

var _ pflag.Value = (*secondsValue)(nil)

// newSecondsValue returns a secondsValue holding def.
func newSecondsValue(def time.Duration) *secondsValue {
	v := secondsValue(def)
	return &v
}

// Set parses s as seconds or as a Go duration.
func (v *secondsValue) Set(s string) error {
	d, err := parseSeconds(s)
	if err != nil {
		return err
	}
	*v = secondsValue(d)
	return nil
}

// String returns the value in Go duration syntax.
func (v *secondsValue) String() string {
	return time.Duration(*v).String()
}

// Type reports "duration" so that pflag's GetDuration reads the flag.
func (v *secondsValue) Type() string {
	return "duration"
}

// parseSeconds parses "1.5" as 1.5s and anything else as a Go duration.
func parseSeconds(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use seconds (1.5) or a Go duration (1500ms)", s)
	}
	return d, nil
}
