// Package jsoncol maps structured Go values to and from a single JSON text
// column. One generic Codec serves every stored shape; instantiate it with the
// shape of the column (map of strings for localized text, map of any for free
// form attributes, a typed slice, or json.RawMessage for an arbitrary tree).
package jsoncol

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrSerialization is matched by every SerializationError.
var ErrSerialization = errors.New("json column serialization failed")

// SerializationError reports a value that could not be encoded or a stored
// text that could not be decoded. It indicates corrupted data or an
// unsupported in-memory shape and must not be retried.
type SerializationError struct {
	Op   string // "encode" or "decode"
	Type string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("jsoncol: %s %s: %v", e.Op, e.Type, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func (e *SerializationError) Is(target error) bool { return target == ErrSerialization }

// Codec converts values of T to and from their JSON text representation.
// The zero value is ready to use and safe for concurrent use.
type Codec[T any] struct{}

// Encode returns the canonical JSON text for v. A nil value (nil map, slice,
// pointer, interface or a raw "null") yields nil so the column is stored as
// SQL NULL rather than the literal text "null".
func (Codec[T]) Encode(v T) (*string, error) {
	if isNil(v) {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, &SerializationError{Op: "encode", Type: typeName[T](), Err: err}
	}

	text := strings.TrimRight(buf.String(), "\n")
	if text == "null" {
		return nil, nil
	}
	return &text, nil
}

// Decode parses stored text into a T. Nil or blank text yields the zero value
// of T without error.
func (Codec[T]) Decode(text *string) (T, error) {
	var out T
	if text == nil || strings.TrimSpace(*text) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(*text), &out); err != nil {
		var zero T
		return zero, &SerializationError{Op: "decode", Type: typeName[T](), Err: err}
	}
	return out, nil
}

// DecodeBytes is Decode for drivers that hand back []byte.
func (c Codec[T]) DecodeBytes(b []byte) (T, error) {
	if b == nil {
		var zero T
		return zero, nil
	}
	s := string(b)
	return c.Decode(&s)
}

// Column adapts a *T to database/sql: it scans a JSON text cell into the
// target and renders the target as a driver value.
type Column[T any] struct {
	V *T
}

// Col wraps v for use as a query argument or scan destination.
func Col[T any](v *T) Column[T] {
	return Column[T]{V: v}
}

// Scan implements sql.Scanner.
func (c Column[T]) Scan(src any) error {
	if c.V == nil {
		return &SerializationError{Op: "decode", Type: typeName[T](), Err: errors.New("nil scan target")}
	}

	var codec Codec[T]
	var (
		v   T
		err error
	)
	switch s := src.(type) {
	case nil:
		v, err = codec.Decode(nil)
	case string:
		v, err = codec.Decode(&s)
	case []byte:
		v, err = codec.DecodeBytes(s)
	default:
		err = &SerializationError{Op: "decode", Type: typeName[T](), Err: fmt.Errorf("unsupported source type %T", src)}
	}
	if err != nil {
		return err
	}

	*c.V = v
	return nil
}

// Value implements driver.Valuer.
func (c Column[T]) Value() (driver.Value, error) {
	if c.V == nil {
		return nil, nil
	}
	text, err := Codec[T]{}.Encode(*c.V)
	if err != nil || text == nil {
		return nil, err
	}
	return *text, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
