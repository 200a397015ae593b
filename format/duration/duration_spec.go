package duration

import (
	"strings"
	"time"

	"github.com/eluv-io/errors-go"
)

// Spec represents a time duration. It provides marshaling to and from a human
// readable format, e.g. 1h15m or 200ms
type Spec time.Duration

const (
	Millisecond = Spec(time.Millisecond)
	Second      = Spec(time.Second)
	Minute      = Spec(time.Minute)
)

// String returns the duration spec formatted like time.Duration.String(), but
// omits zero values:
//
//	1h0m0s is formatted as 1h
//	1h0m5s is formatted as 1h5s
func (s Spec) String() string {
	d := s.Duration()
	f := d.String()

	r := d / time.Second
	if d > time.Second {
		if r%60 == 0 {
			f = strings.Replace(f, "0s", "", 1)
		}
		if (r/60)%60 == 0 {
			f = strings.Replace(f, "0m", "", 1)
		}
	}
	return f
}

// MarshalText implements custom marshaling using the string representation.
func (s Spec) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements custom unmarshaling from the string representation.
func (s *Spec) UnmarshalText(text []byte) error {
	parsed, err := FromString(string(text))
	if err != nil {
		return errors.E("unmarshal duration", errors.K.Invalid, err)
	}
	*s = parsed
	return nil
}

func (s Spec) Duration() time.Duration {
	return time.Duration(s)
}

// Round rounds the duration to a human readable value with at most 3 decimals:
//
//	1.123444ms -> 1.123ms
//	1.123555s  -> 1.124s
//	1m10.444s  -> 1m10s
func (s Spec) Round() Spec {
	d := time.Duration(s)
	switch {
	case d > time.Minute:
		return Spec(d.Round(time.Second))
	case d > time.Second:
		return Spec(d.Round(time.Millisecond))
	case d > time.Millisecond:
		return Spec(d.Round(time.Microsecond))
	default:
		return s
	}
}

// FromString parses the given duration string into a duration spec.
func FromString(s string) (Spec, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.E("parse", errors.K.Invalid, err, "duration_spec", s)
	}
	return Spec(d), nil
}

// MustParse parses the given duration string into a duration spec, panicking in
// case of errors.
func MustParse(s string) Spec {
	spec, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return spec
}
