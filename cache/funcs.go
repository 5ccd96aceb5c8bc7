package cache

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// WrapFunc memoizes an arbitrary function value.
//
// Arguments given to Call are matched to fn's parameters; numeric arguments
// are converted to the parameter's numeric type. A leading context.Context
// parameter receives the call's context. A trailing error result is the
// failure channel and the first other result, if any, is the memoized value.
//
// WrapFunc fails with ErrInvalidArgument if fn is nil or not a function.
func WrapFunc(fn any, opts ...Option) (*Memo[any], error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, ErrInvalidArgument
	}
	return newMemo(fn, reflectFunc(v), opts)
}

// Wrap0 memoizes a function without arguments.
func Wrap0[V any](fn func(context.Context) (V, error), opts ...Option) (func(context.Context) (V, error), error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}
	m, err := newMemo[V](fn, func(ctx context.Context, _ ...any) (V, error) {
		return fn(ctx)
	}, opts)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (V, error) {
		return m.Call(ctx)
	}, nil
}

// Wrap1 memoizes a function of one argument.
func Wrap1[A, V any](fn func(context.Context, A) (V, error), opts ...Option) (func(context.Context, A) (V, error), error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}
	m, err := newMemo[V](fn, func(ctx context.Context, args ...any) (V, error) {
		return fn(ctx, argAt[A](args, 0))
	}, opts)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A) (V, error) {
		return m.Call(ctx, a)
	}, nil
}

// Wrap2 memoizes a function of two arguments.
func Wrap2[A, B, V any](fn func(context.Context, A, B) (V, error), opts ...Option) (func(context.Context, A, B) (V, error), error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}
	m, err := newMemo[V](fn, func(ctx context.Context, args ...any) (V, error) {
		return fn(ctx, argAt[A](args, 0), argAt[B](args, 1))
	}, opts)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a A, b B) (V, error) {
		return m.Call(ctx, a, b)
	}, nil
}

// argAt returns args[i] as T; nil becomes the zero value.
func argAt[T any](args []any, i int) T {
	var zero T
	if i >= len(args) || args[i] == nil {
		return zero
	}
	return args[i].(T)
}

// reflectFunc adapts any function value to Func[any].
func reflectFunc(fn reflect.Value) Func[any] {
	t := fn.Type()
	takesCtx := t.NumIn() > 0 && t.In(0) == contextType
	returnsErr := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType

	return func(ctx context.Context, args ...any) (any, error) {
		if takesCtx {
			args = append([]any{ctx}, args...)
		}
		in, err := callArgs(t, args)
		if err != nil {
			return nil, err
		}

		out := fn.Call(in)

		if returnsErr {
			if errVal := out[len(out)-1]; !errVal.IsNil() {
				return nil, errVal.Interface().(error)
			}
			out = out[:len(out)-1]
		}
		if len(out) == 0 {
			return nil, nil
		}
		return out[0].Interface(), nil
	}
}

// callArgs converts args to the parameter types of t.
func callArgs(t reflect.Type, args []any) ([]reflect.Value, error) {
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("%w: want at least %d arguments, got %d", ErrInvalidArgument, fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("%w: want %d arguments, got %d", ErrInvalidArgument, fixed, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if i < fixed {
			want = t.In(i)
		} else {
			want = t.In(t.NumIn() - 1).Elem()
		}

		v, err := convertArg(arg, want)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d: %v", ErrInvalidArgument, i, err)
		}
		in[i] = v
	}
	return in, nil
}

func convertArg(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", want)
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(want.Kind()) {
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), want)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// shortName strips the import path from a function identity:
// "github.com/acme/users.Load" becomes "users.Load".
func shortName(identity string) string {
	if i := strings.LastIndex(identity, "/"); i >= 0 {
		return identity[i+1:]
	}
	return identity
}
