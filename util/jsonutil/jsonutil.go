package jsonutil

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/eluv-io/errors-go"
)

// MarshalCompactString marshals the given value as compact JSON (no indenting,
// no newlines) and returns it as a string.
// The function panics if any errors occur.
func MarshalCompactString(v interface{}) string {
	res, err := json.Marshal(v)
	if err != nil {
		err = errors.E("marshal json", errors.K.Invalid, err, "object_dump", spew.Sdump(v))
		panic("Failed to marshal json: " + err.Error())
	}
	return string(res)
}

// MarshalString marshals the given value as indented JSON and returns it
// as a string.
// The function panics if any errors occur.
func MarshalString(v interface{}) string {
	return string(Marshal(v))
}

// Marshal marshals the given value as indented JSON and returns it as a
// byte slice.
// The function panics if any errors occur.
func Marshal(v interface{}) []byte {
	res, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		err = errors.E("marshal json", errors.K.Invalid, err, "object_dump", spew.Sdump(v))
		panic("Failed to marshal json: " + err.Error())
	}
	return res
}

// UnmarshalFile reads the JSON file at the given path and unmarshals it into v.
// Fields of v that are not present in the file retain their current values, so
// v may be pre-populated with defaults.
func UnmarshalFile(path string, v interface{}) error {
	bts, err := os.ReadFile(path)
	if err != nil {
		return errors.E("unmarshal json file", errors.K.IO, err, "path", path)
	}
	err = json.Unmarshal(bts, v)
	if err != nil {
		return errors.E("unmarshal json file", errors.K.Invalid, err, "path", path, "receiver", spew.Sdump(v))
	}
	return nil
}

// Stringer returns a wrapper around val whose String() function returns val's
// compact JSON representation. Marshaling only happens when String() is called,
// which makes it suitable for log fields that may not be emitted.
func Stringer(val interface{}) fmt.Stringer {
	return &stringer{val}
}

type stringer struct {
	val interface{}
}

func (s *stringer) String() string {
	bts, err := json.Marshal(s.val)
	if err != nil {
		return fmt.Sprintf("%#v", s.val)
	}
	return string(bts)
}

func (s *stringer) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.val)
}
