package cache

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// anonymousName matches the runtime symbols the compiler gives function
// literals: pkg.outer.func1, pkg.outer.func1.2, pkg.glob..func3.
var anonymousName = regexp.MustCompile(`\.func\d+(\.\d+)*$|\.glob\.\.func\d+`)

// FuncIdentity returns the identity used to partition fn's cache entries.
//
// Declared functions and methods are identified by their fully qualified
// name. Function literals have no declared name, so they are identified by a
// fingerprint of their definition (runtime symbol and file:line). Two
// closures built from the same literal therefore share an identity.
func FuncIdentity(fn any) (string, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return "", ErrInvalidArgument
	}

	name := funcName(v)
	if name != "" && !anonymousName.MatchString(name) {
		return name, nil
	}
	return "anon:" + strconv.FormatUint(xxhash.Sum64String(funcDefinition(v)), 16), nil
}

func funcName(v reflect.Value) string {
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	return f.Name()
}

// funcDefinition is the textual stand-in for a function's source: its
// runtime symbol plus the location of its body.
func funcDefinition(v reflect.Value) string {
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return fmt.Sprintf("func@%#x", v.Pointer())
	}
	file, line := f.FileLine(f.Entry())
	return fmt.Sprintf("%s@%s:%d", f.Name(), file, line)
}
