package cache

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Keyer derives cache keys from a function identity and call arguments.
//
// Contract:
//   - Determinism: structurally equal arguments must produce equal keys,
//     regardless of map iteration order or pointer identity.
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: an empty key must be reported as ErrKeyDerivation.
type Keyer interface {
	Key(identity string, args []any) (string, error)
}

// DefaultKeyer serializes [identity, args...] to canonical JSON.
//
// Structs, maps and byte slices are written as a one-entry object keyed by
// their type, {"pkg.T":...}, so values of different types never share a
// key. Maps are written with sorted keys and pointers are followed. Struct
// fields are written in declaration order, unexported ones included;
// exported fields honor json tag names and "-". Functions are replaced by
// their definition text so that callbacks built from the same literal yield
// the same key. Values JSON cannot express (channels, complex numbers,
// unsafe pointers) are written as a type tag. Cyclic values fail with
// ErrKeyDerivation.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives the cache key for a call.
func (k *DefaultKeyer) Key(identity string, args []any) (string, error) {
	enc := &keyEncoder{seen: make(map[uintptr]struct{})}

	enc.buf.WriteByte('[')
	enc.writeString(identity)
	for _, arg := range args {
		enc.buf.WriteByte(',')
		if err := enc.encode(reflect.ValueOf(arg)); err != nil {
			return "", fmt.Errorf("%w: %v", ErrKeyDerivation, err)
		}
	}
	enc.buf.WriteByte(']')

	key := enc.buf.String()
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

type keyEncoder struct {
	buf  bytes.Buffer
	seen map[uintptr]struct{}
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

func (e *keyEncoder) encode(v reflect.Value) error {
	if !v.IsValid() {
		e.buf.WriteString("null")
		return nil
	}

	// Types with their own wire form (time.Time, big.Int, ...) use it.
	// Values read from unexported fields cannot be handed to Marshal and are
	// walked like any other value.
	if v.Kind() != reflect.Func && v.CanInterface() &&
		(v.Type().Implements(jsonMarshalerType) || v.Type().Implements(textMarshalerType)) {
		if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		data, err := json.Marshal(v.Interface())
		if err == nil {
			e.buf.Write(data)
			return nil
		}
	}

	switch v.Kind() {
	case reflect.Func:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		e.writeString("func:" + funcDefinition(v))

	case reflect.Bool:
		e.buf.WriteString(strconv.FormatBool(v.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		e.buf.WriteString(strconv.FormatInt(v.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		e.buf.WriteString(strconv.FormatUint(v.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		e.buf.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))

	case reflect.String:
		e.writeString(v.String())

	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if v.Kind() == reflect.Pointer {
			return e.visit(v.Pointer(), func() error { return e.encode(v.Elem()) })
		}
		return e.encode(v.Elem())

	case reflect.Slice:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			e.openTyped(v.Type())
			data, _ := json.Marshal(v.Bytes())
			e.buf.Write(data)
			e.buf.WriteByte('}')
			return nil
		}
		return e.visit(v.Pointer(), func() error { return e.encodeList(v) })

	case reflect.Array:
		return e.encodeList(v)

	case reflect.Map:
		if v.IsNil() {
			e.buf.WriteString("null")
			return nil
		}
		return e.visit(v.Pointer(), func() error { return e.encodeMap(v) })

	case reflect.Struct:
		return e.encodeStruct(v)

	default:
		// chan, complex, unsafe.Pointer
		e.writeString(v.Type().String())
	}
	return nil
}

// visit guards against reference cycles.
func (e *keyEncoder) visit(ptr uintptr, fn func() error) error {
	if _, ok := e.seen[ptr]; ok {
		return fmt.Errorf("cyclic value at %#x", ptr)
	}
	e.seen[ptr] = struct{}{}
	defer delete(e.seen, ptr)
	return fn()
}

func (e *keyEncoder) encodeList(v reflect.Value) error {
	e.buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		if err := e.encode(v.Index(i)); err != nil {
			return err
		}
	}
	e.buf.WriteByte(']')
	return nil
}

func (e *keyEncoder) encodeMap(v reflect.Value) error {
	type kv struct {
		key string
		val reflect.Value
	}

	entries := make([]kv, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := iter.Key()
		var name string
		if k.Kind() == reflect.String {
			name = k.String()
		} else {
			sub := &keyEncoder{seen: e.seen}
			if err := sub.encode(k); err != nil {
				return err
			}
			name = sub.buf.String()
		}
		entries = append(entries, kv{key: name, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	e.openTyped(v.Type())
	e.buf.WriteByte('{')
	for i, ent := range entries {
		if i > 0 {
			e.buf.WriteByte(',')
		}
		e.writeString(ent.key)
		e.buf.WriteByte(':')
		if err := e.encode(ent.val); err != nil {
			return err
		}
	}
	e.buf.WriteString("}}")
	return nil
}

func (e *keyEncoder) encodeStruct(v reflect.Value) error {
	t := v.Type()
	e.openTyped(t)
	e.buf.WriteByte('{')
	first := true
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok && field.IsExported() {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if !first {
			e.buf.WriteByte(',')
		}
		first = false
		e.writeString(name)
		e.buf.WriteByte(':')
		if err := e.encode(v.Field(i)); err != nil {
			return err
		}
	}
	e.buf.WriteString("}}")
	return nil
}

// openTyped starts a {"type": value} wrapper; the caller closes it.
func (e *keyEncoder) openTyped(t reflect.Type) {
	e.buf.WriteByte('{')
	e.writeString(typeName(t))
	e.buf.WriteByte(':')
}

// typeName qualifies named types with their full package path.
func typeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

func (e *keyEncoder) writeString(s string) {
	data, _ := json.Marshal(s)
	e.buf.Write(data)
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
