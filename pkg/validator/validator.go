package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Validator checks a single request field.
type Validator interface {
	Validate(value interface{}) error
}

type String struct {
	Optional  bool
	UnsetZero bool
	MinLen    int
	MaxLen    int
	Regex     *regexp.Regexp
}

func (v *String) Validate(value interface{}) error {
	s, ok := toString(value)
	if !ok {
		if v.Optional {
			return nil
		}
		return errors.New("is required")
	}

	if s == "" && v.UnsetZero {
		if v.Optional {
			return nil
		}
		return errors.New("is required")
	}

	if len(s) < v.MinLen {
		return fmt.Errorf("min length is %d", v.MinLen)
	}

	if v.MaxLen > 0 && len(s) > v.MaxLen {
		return fmt.Errorf("max length is %d", v.MaxLen)
	}

	if v.Regex != nil && !v.Regex.MatchString(s) {
		return fmt.Errorf("must match %s", v.Regex.String())
	}

	return nil
}

type UInt64 struct {
	Optional bool
	Min      *uint64
	Max      *uint64
}

func (v *UInt64) Validate(value interface{}) error {
	i, ok := toUint64(value)
	if !ok {
		if v.Optional {
			return nil
		}
		return errors.New("is required")
	}

	if v.Min != nil && i < *v.Min {
		return fmt.Errorf("min value is %d", *v.Min)
	}

	if v.Max != nil && i > *v.Max {
		return fmt.Errorf("max value is %d", *v.Max)
	}

	return nil
}

type UInt32 struct {
	Optional bool
}

func (v *UInt32) Validate(value interface{}) error {
	if ptr, ok := value.(*uint32); ok && ptr != nil {
		return nil
	}
	if _, ok := value.(uint32); ok {
		return nil
	}
	if v.Optional {
		return nil
	}
	return errors.New("is required")
}

type Int64 struct {
	Optional bool
}

func (v *Int64) Validate(value interface{}) error {
	if ptr, ok := value.(*int64); ok && ptr != nil {
		return nil
	}
	if _, ok := value.(int64); ok {
		return nil
	}
	if v.Optional {
		return nil
	}
	return errors.New("is required")
}

type Slice struct {
	Optional  bool
	MinLen    int
	MaxLen    int
	Validator Validator
}

func (v *Slice) Validate(value interface{}) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() == reflect.Slice && rv.IsNil()) {
		if v.Optional {
			return nil
		}
		return errors.New("is required")
	}

	if rv.Kind() != reflect.Slice {
		return errors.New("expect a slice")
	}

	if rv.Len() < v.MinLen {
		return fmt.Errorf("min length is %d", v.MinLen)
	}

	if v.MaxLen > 0 && rv.Len() > v.MaxLen {
		return fmt.Errorf("max length is %d", v.MaxLen)
	}

	if v.Validator != nil {
		for i := 0; i < rv.Len(); i++ {
			if err := v.Validator.Validate(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("index %d: %v", i, err)
			}
		}
	}

	return nil
}

// Form validates a request struct field by field. Fields are matched by their
// json tag, falling back to the schema tag, then the Go field name.
type Form struct {
	fields map[string]Validator
}

func MustForm(fields map[string]Validator) *Form {
	for name, v := range fields {
		if v == nil {
			panic(fmt.Sprintf("nil validator for field %s", name))
		}
	}
	return &Form{fields: fields}
}

func (f *Form) Validate(value interface{}) error {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return errors.New("is required")
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return errors.New("expect a struct")
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)

		v, ok := f.fields[fieldKey(field)]
		if !ok {
			continue
		}

		if err := v.Validate(rv.Field(i).Interface()); err != nil {
			return fmt.Errorf("%s: %v", fieldKey(field), err)
		}
	}

	return nil
}

func fieldKey(field reflect.StructField) string {
	for _, tag := range []string{"json", "schema"} {
		if v, ok := field.Tag.Lookup(tag); ok {
			if name := strings.Split(v, ",")[0]; name != "" && name != "-" {
				return name
			}
		}
	}
	return field.Name
}

func toString(value interface{}) (string, bool) {
	switch s := value.(type) {
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	}
	return "", false
}

func toUint64(value interface{}) (uint64, bool) {
	switch i := value.(type) {
	case uint64:
		return i, true
	case *uint64:
		if i == nil {
			return 0, false
		}
		return *i, true
	}
	return 0, false
}
