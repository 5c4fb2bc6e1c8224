package codec

import (
	"reflect"
	"strings"
	"sync"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

// Marshaler is implemented by types that build their own SML value.
type Marshaler interface {
	MarshalSML() (value.Value, error)
}

// Unmarshaler is implemented by types that restore themselves from an SML
// value. It is called on a pointer.
type Unmarshaler interface {
	UnmarshalSML(v value.Value) error
}

var (
	marshalerType   = reflect.TypeFor[Marshaler]()
	unmarshalerType = reflect.TypeFor[Unmarshaler]()
	uint128Type     = reflect.TypeFor[uint128.Uint128]()
	int128Type      = reflect.TypeFor[value.Int128]()
	valueType       = reflect.TypeFor[value.Value]()
)

type planKind uint8

const (
	planPrim planKind = iota
	planU128
	planI128
	planValue
	planCustom
	planStruct
	planOption
	planSlice
	planArray
	planString
)

// plan maps one Go type to its SML shape. Plans are immutable once built.
type plan struct {
	goType reflect.Type
	elem   *plan
	typ    value.Type
	fields []fieldPlan
	prim   tag.Tag
	kind   planKind
	double bool
	// exact is set when typ fully describes every value of the Go type.
	exact bool
}

type fieldPlan struct {
	plan  *plan
	name  string
	index int
}

type planKey struct {
	goType reflect.Type
	char   bool
}

// Compiler builds and caches plans. The zero value is ready to use and safe
// for concurrent use.
type Compiler struct {
	cache sync.Map // planKey -> *plan
}

var defaultCompiler = &Compiler{}

// TypeOf returns the SML type values of Go type t encode to. Parts decided
// only at run time, such as Marshaler output, are left unspecified.
func (c *Compiler) TypeOf(t reflect.Type) (value.Type, error) {
	p, err := c.plan(t, false)
	if err != nil {
		return value.Type{}, err
	}
	return p.typ, nil
}

func (c *Compiler) plan(t reflect.Type, char bool) (*plan, error) {
	if t == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindInvalidInput).
			Detail("Go type cannot be nil").
			Build()
	}
	key := planKey{goType: t, char: char}
	if cached, ok := c.cache.Load(key); ok {
		return cached.(*plan), nil
	}
	p, err := c.compile(t, char, nil, map[reflect.Type]bool{})
	if err != nil {
		return nil, err
	}
	actual, _ := c.cache.LoadOrStore(key, p)
	return actual.(*plan), nil
}

func (c *Compiler) compile(t reflect.Type, char bool, path []string, building map[reflect.Type]bool) (*plan, error) {
	if char {
		if t.Kind() != reflect.Int32 {
			return nil, errors.GoTypeMismatch(errors.PhaseCompile, path, t.String(), tag.Char.String())
		}
		return primPlan(t, tag.Char, false), nil
	}

	if t.Kind() != reflect.Pointer && isCustom(t) {
		return &plan{goType: t, kind: planCustom}, nil
	}

	switch t {
	case uint128Type:
		return &plan{goType: t, kind: planU128, typ: value.Prim(tag.U128), exact: true}, nil
	case int128Type:
		return &plan{goType: t, kind: planI128, typ: value.Prim(tag.I128), exact: true}, nil
	case valueType:
		return &plan{goType: t, kind: planValue}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return primPlan(t, tag.Bool, false), nil
	case reflect.Uint8:
		return primPlan(t, tag.U8, false), nil
	case reflect.Uint16:
		return primPlan(t, tag.U16, false), nil
	case reflect.Uint32:
		return primPlan(t, tag.U32, false), nil
	case reflect.Uint64, reflect.Uint:
		return primPlan(t, tag.U64, false), nil
	case reflect.Int8:
		return primPlan(t, tag.I8, false), nil
	case reflect.Int16:
		return primPlan(t, tag.I16, false), nil
	case reflect.Int32:
		return primPlan(t, tag.I32, false), nil
	case reflect.Int64, reflect.Int:
		return primPlan(t, tag.I64, false), nil
	case reflect.Float32:
		return primPlan(t, tag.Float, false), nil
	case reflect.Float64:
		return primPlan(t, tag.Float, true), nil
	case reflect.String:
		return &plan{
			goType: t,
			kind:   planString,
			typ:    value.ArrayOf(value.Prim(tag.Char)),
			exact:  true,
		}, nil
	}

	if building[t] {
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			Path(path...).
			GoType(t.String()).
			Detail("recursive types have no finite SML shape").
			Build()
	}
	building[t] = true
	defer delete(building, t)

	switch t.Kind() {
	case reflect.Struct:
		return c.compileStruct(t, path, building)
	case reflect.Pointer:
		elem, err := c.compile(t.Elem(), false, path, building)
		if err != nil {
			return nil, err
		}
		p := &plan{goType: t, kind: planOption, elem: elem, exact: elem.exact, typ: value.Type{Tag: tag.Option}}
		if elem.exact {
			p.typ = value.OptionOf(elem.typ)
		}
		return p, nil
	case reflect.Slice, reflect.Array:
		elem, err := c.compile(t.Elem(), false, append(append([]string{}, path...), "[elem]"), building)
		if err != nil {
			return nil, err
		}
		kind := planSlice
		if t.Kind() == reflect.Array {
			kind = planArray
		}
		p := &plan{goType: t, kind: kind, elem: elem, exact: elem.exact, typ: value.AnyArray()}
		if elem.exact {
			p.typ = value.ArrayOf(elem.typ)
		}
		return p, nil
	}

	return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
		Path(path...).
		GoType(t.String()).
		Detail("no SML mapping for %s", t.Kind()).
		Build()
}

func primPlan(t reflect.Type, k tag.Tag, double bool) *plan {
	return &plan{goType: t, kind: planPrim, prim: k, double: double, typ: value.Prim(k), exact: true}
}

func isCustom(t reflect.Type) bool {
	return t.Implements(marshalerType) ||
		reflect.PointerTo(t).Implements(marshalerType) ||
		reflect.PointerTo(t).Implements(unmarshalerType)
}

func (c *Compiler) compileStruct(t reflect.Type, path []string, building map[reflect.Type]bool) (*plan, error) {
	fields := make([]fieldPlan, 0, t.NumField())
	types := make([]value.Type, 0, t.NumField())
	exact := true

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		skip, char := parseTag(f.Tag.Get("sml"))
		if skip {
			continue
		}

		fieldPath := append(append([]string{}, path...), f.Name)
		fp, err := c.compile(f.Type, char, fieldPath, building)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fieldPlan{plan: fp, name: f.Name, index: i})
		types = append(types, fp.typ)
		exact = exact && fp.exact
	}

	p := &plan{goType: t, kind: planStruct, fields: fields, exact: exact, typ: value.AnyStruct()}
	if exact {
		p.typ = value.StructOf(types...)
	}
	return p, nil
}

// parseTag reads an `sml:"[name][,char]"` tag. The name is not part of the
// wire format; "-" skips the field.
func parseTag(s string) (skip, char bool) {
	if s == "-" {
		return true, false
	}
	_, opts, _ := strings.Cut(s, ",")
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == "char" {
			char = true
		}
	}
	return false, char
}
