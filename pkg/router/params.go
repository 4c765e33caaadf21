package router

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Params holds the values captured by :param and *wildcard segments.
type Params map[string]string

// Get returns the named value, or "" when absent.
func (p Params) Get(name string) string {
	return p[name]
}

// Int parses the named value as an integer.
func (p Params) Int(name string) (int, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("missing param %q", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("param %q: invalid integer: %s", name, v)
	}
	return n, nil
}

// Bind populates a struct from the params using `param` field tags.
// Wildcard values bind to []string split on "/".
func (p Params) Bind(target any) error {
	if target == nil {
		return nil
	}
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer, got %s", v.Kind())
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct, got pointer to %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("param")
		if name == "" {
			continue
		}
		value, ok := p[name]
		if !ok {
			continue
		}
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if err := setField(fv, value); err != nil {
			return fmt.Errorf("parsing param %q: %w", name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		var parts []string
		if value != "" {
			parts = strings.Split(value, "/")
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}
	return nil
}

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func knownParamType(paramType string) bool {
	switch paramType {
	case "", "string", "int", "uint", "uuid":
		return true
	}
	return false
}

// ValidateParam checks value against a :name:type constraint.
func ValidateParam(value, paramType string) error {
	switch paramType {
	case "int":
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
	case "uint":
		if _, err := strconv.ParseUint(value, 10, 64); err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
	case "uuid":
		if !uuidRegex.MatchString(value) {
			return fmt.Errorf("invalid UUID: %s", value)
		}
	}
	return nil
}
