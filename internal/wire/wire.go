// Package wire implements a tag-indexed registry of record types so that
// payloads can be self-describing on the wire: every encoded record carries
// a "_type" discriminator alongside its named fields, and any process that
// knows the registry can decode a message without a shared schema file.
//
// Intermediate routers only need to understand the Header; application
// endpoints register their own payload types at init time and the registry
// never has to change to carry them.
package wire

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sync"
	"time"
)

const typeField = "_type"

// timeLayout matches the Python `strftime("%Y-%m-%d %H:%M:%S")` encoding
// used by turberfield.ipc.message.TypesEncoder for date-like values.
const timeLayout = "2006-01-02 15:04:05"

// UnknownType is returned by Loads when a record's "_type" discriminator
// does not match any registered type.
type UnknownType struct {
	Name string
}

func (e *UnknownType) Error() string {
	return fmt.Sprintf("wire: type %q not recognised", e.Name)
}

// FieldMismatch is returned by Loads when a record's fields don't line up
// with the registered type's declared fields.
type FieldMismatch struct {
	Name string
	Err  error
}

func (e *FieldMismatch) Error() string {
	return fmt.Sprintf("wire: field mismatch against %s: %v", e.Name, e.Err)
}

func (e *FieldMismatch) Unwrap() error { return e.Err }

var (
	mu        sync.RWMutex
	registry  = map[string]reflect.Type{}
	tagByType = map[reflect.Type]string{}
)

// Register adds each given value's type to the process-wide catalogue,
// keyed by its package-qualified type name (import path, a dot, then the
// type name), so same-named types from different packages do not
// collide. Register is meant
// to run during package initialization; it is not safe to race with Dumps
// or Loads on the same type name, though concurrent Register of distinct
// names is fine.
func Register(values ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	for _, v := range values {
		t := reflect.TypeOf(v)
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		name := t.PkgPath() + "." + t.Name()
		registry[name] = t
		tagByType[t] = name
	}
}

// Dumps produces the canonical textual encoding of obj. Structs registered
// with Register are walked recursively and gain a "_type" discriminator;
// nested structs, slices and maps recurse the same way; primitives and
// unregistered values pass through to encoding/json; time.Time encodes as
// "YYYY-MM-DD HH:MM:SS"; *regexp.Regexp encodes as its source pattern.
func Dumps(obj interface{}) (string, error) {
	node := toNode(reflect.ValueOf(obj))
	b, err := json.Marshal(node)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toNode(v reflect.Value) interface{} {
	if !v.IsValid() {
		return nil
	}
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch t := v.Interface().(type) {
	case time.Time:
		return t.Format(timeLayout)
	case regexp.Regexp:
		return t.String()
	}
	if re, ok := v.Interface().(*regexp.Regexp); ok {
		if re == nil {
			return nil
		}
		return re.String()
	}

	switch v.Kind() {
	case reflect.Struct:
		mu.RLock()
		tag, known := tagByType[v.Type()]
		mu.RUnlock()

		out := map[string]interface{}{}
		if known {
			out[typeField] = tag
		}
		for i := 0; i < v.NumField(); i++ {
			f := v.Type().Field(i)
			if f.PkgPath != "" { // unexported
				continue
			}
			out[f.Name] = toNode(v.Field(i))
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, v.Len())
		for i := range out {
			out[i] = toNode(v.Index(i))
		}
		return out
	case reflect.Map:
		out := map[string]interface{}{}
		for _, k := range v.MapKeys() {
			out[fmt.Sprint(k.Interface())] = toNode(v.MapIndex(k))
		}
		return out
	default:
		return v.Interface()
	}
}

// Loads parses text and, for every object bearing a "_type" key,
// constructs the registered record via reflection. It returns UnknownType
// when the discriminator is unregistered and FieldMismatch when the
// object's keys are not exactly the record's exported fields or a value
// cannot be assigned to its field.
func Loads(text string) (interface{}, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, err
	}
	return fromNode(raw)
}

func fromNode(raw interface{}) (interface{}, error) {
	switch v := raw.(type) {
	case map[string]interface{}:
		name, ok := v[typeField].(string)
		if !ok {
			return v, nil
		}
		mu.RLock()
		t, known := registry[name]
		mu.RUnlock()
		if !known {
			return nil, &UnknownType{Name: name}
		}
		for key := range v {
			if key == typeField {
				continue
			}
			if f, ok := t.FieldByName(key); !ok || f.PkgPath != "" {
				return nil, &FieldMismatch{Name: name, Err: fmt.Errorf("unexpected field %q", key)}
			}
		}
		out := reflect.New(t).Elem()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			raw, present := v[f.Name]
			if !present {
				return nil, &FieldMismatch{Name: name, Err: fmt.Errorf("missing field %q", f.Name)}
			}
			fv, err := fromNode(raw)
			if err != nil {
				return nil, err
			}
			if err := assign(out.Field(i), fv); err != nil {
				return nil, &FieldMismatch{Name: name, Err: err}
			}
		}
		return out.Interface(), nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			child, err := fromNode(item)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	default:
		return v, nil
	}
}

// assign coerces a decoded JSON value into dst, covering the primitive and
// nested-struct shapes that the registered payload types in this module
// actually use (strings, ints, floats, bools, nested structs, and slices
// of those).
var regexType = reflect.TypeOf(&regexp.Regexp{})
var timeType = reflect.TypeOf(time.Time{})

func assign(dst reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}
	vv := reflect.ValueOf(value)

	if dst.Type() == timeType {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected time string for %s, got %T", dst.Type(), value)
		}
		when, err := time.Parse(timeLayout, s)
		if err != nil {
			return fmt.Errorf("invalid time value %q: %w", s, err)
		}
		dst.Set(reflect.ValueOf(when))
		return nil
	}

	if dst.Type() == regexType {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected regex pattern string, got %T", value)
		}
		re, err := regexp.Compile(s)
		if err != nil {
			return fmt.Errorf("invalid regex pattern %q: %w", s, err)
		}
		dst.Set(reflect.ValueOf(re))
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		if vv.Kind() != reflect.Struct || vv.Type() != dst.Type() {
			return fmt.Errorf("expected struct %s, got %T", dst.Type(), value)
		}
		dst.Set(vv)
		return nil
	case reflect.Ptr:
		if vv.Kind() != reflect.Struct && vv.Kind() != reflect.Ptr {
			return fmt.Errorf("expected pointer-compatible value for %s, got %T", dst.Type(), value)
		}
		elem := reflect.New(dst.Type().Elem())
		if vv.Kind() == reflect.Ptr {
			vv = vv.Elem()
		}
		elem.Elem().Set(vv)
		dst.Set(elem)
		return nil
	case reflect.Slice:
		items, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("expected array for %s, got %T", dst.Type(), value)
		}
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assign(out.Index(i), item); err != nil {
				return err
			}
		}
		dst.Set(out)
		return nil
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string for %s, got %T", dst.Type(), value)
		}
		dst.SetString(s)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected number for %s, got %T", dst.Type(), value)
		}
		dst.SetInt(int64(f))
		return nil
	case reflect.Float32, reflect.Float64:
		f, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected number for %s, got %T", dst.Type(), value)
		}
		dst.SetFloat(f)
		return nil
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool for %s, got %T", dst.Type(), value)
		}
		dst.SetBool(b)
		return nil
	default:
		return fmt.Errorf("unsupported field kind %s", dst.Kind())
	}
}
