package codec

import (
	"reflect"
	"unicode/utf8"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

// Marshal encodes the Go value v through e.
//
// Struct fields are written in declaration order; unexported fields and
// fields tagged `sml:"-"` are skipped, and `sml:",char"` writes an int32 as
// a char. Pointers map to options, slices, arrays and strings to arrays.
// A non-nil pointer passed as v is dereferenced once.
func Marshal(e *Encoder, v any) error {
	return defaultCompiler.Marshal(e, v)
}

// Unmarshal decodes one value from d into the value ptr points to.
func Unmarshal(d *Decoder, ptr any) error {
	return defaultCompiler.Unmarshal(d, ptr)
}

// ToValue converts a Go value to an SML value without encoding it.
func ToValue(v any) (value.Value, error) {
	return defaultCompiler.ToValue(v)
}

// FromValue stores an SML value into the value ptr points to.
func FromValue(v value.Value, ptr any) error {
	return defaultCompiler.FromValue(v, ptr)
}

// Marshal encodes v through e using c's plans.
func (c *Compiler) Marshal(e *Encoder, v any) error {
	val, err := c.ToValue(v)
	if err != nil {
		return err
	}
	return e.Encode(val)
}

// Unmarshal decodes one value from d into ptr using c's plans.
func (c *Compiler) Unmarshal(d *Decoder, ptr any) error {
	rv, p, err := c.target(ptr)
	if err != nil {
		return err
	}
	var val value.Value
	if p.kind == planCustom || p.kind == planValue {
		val, err = d.Decode()
	} else {
		val, err = d.DecodeAs(p.typ)
	}
	if err != nil {
		return err
	}
	return fromValue(rv, val, p, nil)
}

// ToValue converts v using c's plans.
func (c *Compiler) ToValue(v any) (value.Value, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return value.Value{}, errors.InvalidInput(errors.PhaseEncode, "cannot marshal nil")
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return value.Value{}, errors.InvalidInput(errors.PhaseEncode, "cannot marshal nil pointer")
		}
		rv = rv.Elem()
	}
	p, err := c.plan(rv.Type(), false)
	if err != nil {
		return value.Value{}, err
	}
	return toValue(rv, p, nil)
}

// FromValue stores v into ptr using c's plans.
func (c *Compiler) FromValue(v value.Value, ptr any) error {
	rv, p, err := c.target(ptr)
	if err != nil {
		return err
	}
	if p.exact && !p.typ.Accepts(v.Type()) {
		return errors.TypeMismatch(errors.PhaseDecode, nil, p.typ.String(), v.Type().String())
	}
	return fromValue(rv, v, p, nil)
}

func (c *Compiler) target(ptr any) (reflect.Value, *plan, error) {
	rv := reflect.ValueOf(ptr)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, nil, errors.InvalidInput(errors.PhaseDecode, "unmarshal target must be a non-nil pointer")
	}
	rv = rv.Elem()
	p, err := c.plan(rv.Type(), false)
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return rv, p, nil
}

func toValue(rv reflect.Value, p *plan, path []string) (value.Value, error) {
	switch p.kind {
	case planPrim:
		return primValue(rv, p), nil
	case planU128:
		return value.Uint128(rv.Interface().(uint128.Uint128)), nil
	case planI128:
		return value.Int128Value(rv.Interface().(value.Int128)), nil
	case planValue:
		return rv.Interface().(value.Value), nil
	case planCustom:
		m, ok := marshalerOf(rv)
		if !ok {
			return value.Value{}, errors.New(errors.PhaseEncode, errors.KindUnsupported).
				Path(path...).
				GoType(p.goType.String()).
				Detail("type implements Unmarshaler but not Marshaler").
				Build()
		}
		v, err := m.MarshalSML()
		if err != nil {
			return value.Value{}, errors.WithPath(err, path...)
		}
		return v, nil
	case planStruct:
		fields := make([]value.Value, len(p.fields))
		for i, f := range p.fields {
			v, err := toValue(rv.Field(f.index), f.plan, append(path, f.name))
			if err != nil {
				return value.Value{}, err
			}
			fields[i] = v
		}
		return value.Struct(fields...), nil
	case planOption:
		if rv.IsNil() {
			elem, err := elemType(p.elem, path)
			if err != nil {
				return value.Value{}, err
			}
			return value.None(elem), nil
		}
		inner, err := toValue(rv.Elem(), p.elem, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.Some(inner), nil
	case planSlice, planArray:
		items := make([]value.Value, rv.Len())
		for i := range items {
			v, err := toValue(rv.Index(i), p.elem, append(path, itemName(i)))
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.Array(items...), nil
	case planString:
		s := rv.String()
		if !utf8.ValidString(s) {
			return value.Value{}, errors.WithPath(errors.InvalidUTF8(errors.PhaseEncode, []byte(s)), path...)
		}
		items := make([]value.Value, 0, utf8.RuneCountInString(s))
		for _, r := range s {
			items = append(items, value.Char(r))
		}
		return value.Array(items...), nil
	}
	return value.Value{}, errors.Unsupported(errors.PhaseEncode, "unhandled plan for "+p.goType.String())
}

func primValue(rv reflect.Value, p *plan) value.Value {
	switch p.prim {
	case tag.Bool:
		return value.Bool(rv.Bool())
	case tag.U8:
		return value.Uint8(uint8(rv.Uint()))
	case tag.U16:
		return value.Uint16(uint16(rv.Uint()))
	case tag.U32:
		return value.Uint32(uint32(rv.Uint()))
	case tag.U64:
		return value.Uint64(rv.Uint())
	case tag.I8:
		return value.Int8(int8(rv.Int()))
	case tag.I16:
		return value.Int16(int16(rv.Int()))
	case tag.I32:
		return value.Int32(int32(rv.Int()))
	case tag.I64:
		return value.Int64(rv.Int())
	case tag.Char:
		return value.Char(rune(rv.Int()))
	}
	if p.double {
		return value.Float64(rv.Float())
	}
	return value.Float32(float32(rv.Float()))
}

// elemType returns the option payload type for a nil pointer. Types whose
// shape is only known at run time are asked through their zero value.
func elemType(p *plan, path []string) (value.Type, error) {
	if p.exact {
		return p.typ, nil
	}
	zero, err := toValue(reflect.New(p.goType).Elem(), p, path)
	if err != nil {
		return value.Type{}, err
	}
	return zero.Type(), nil
}

func marshalerOf(rv reflect.Value) (Marshaler, bool) {
	if m, ok := rv.Interface().(Marshaler); ok {
		return m, true
	}
	if rv.CanAddr() {
		m, ok := rv.Addr().Interface().(Marshaler)
		return m, ok
	}
	ptr := reflect.New(rv.Type())
	ptr.Elem().Set(rv)
	m, ok := ptr.Interface().(Marshaler)
	return m, ok
}

func mismatch(path []string, p *plan, v value.Value) error {
	return errors.GoTypeMismatch(errors.PhaseDecode, path, p.goType.String(), v.Type().String())
}

func fromValue(rv reflect.Value, v value.Value, p *plan, path []string) error {
	switch p.kind {
	case planPrim:
		return setPrim(rv, v, p, path)
	case planU128:
		if v.Tag() != tag.U128 {
			return mismatch(path, p, v)
		}
		rv.Set(reflect.ValueOf(v.Uint128()))
		return nil
	case planI128:
		if v.Tag() != tag.I128 {
			return mismatch(path, p, v)
		}
		rv.Set(reflect.ValueOf(v.Int128()))
		return nil
	case planValue:
		rv.Set(reflect.ValueOf(v))
		return nil
	case planCustom:
		u, ok := rv.Addr().Interface().(Unmarshaler)
		if !ok {
			return errors.New(errors.PhaseDecode, errors.KindUnsupported).
				Path(path...).
				GoType(p.goType.String()).
				Detail("type implements Marshaler but not Unmarshaler").
				Build()
		}
		return errors.WithPath(u.UnmarshalSML(v), path...)
	case planStruct:
		fields := v.Fields()
		if v.Tag() != tag.Struct || len(fields) != len(p.fields) {
			return mismatch(path, p, v)
		}
		for i, f := range p.fields {
			if err := fromValue(rv.Field(f.index), fields[i], f.plan, append(path, f.name)); err != nil {
				return err
			}
		}
		return nil
	case planOption:
		if v.Tag() != tag.Option {
			return mismatch(path, p, v)
		}
		inner, ok := v.Elem()
		if !ok {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		ptr := reflect.New(p.goType.Elem())
		if err := fromValue(ptr.Elem(), inner, p.elem, path); err != nil {
			return err
		}
		rv.Set(ptr)
		return nil
	case planSlice, planArray:
		items := v.Items()
		if v.Tag() != tag.Array {
			return mismatch(path, p, v)
		}
		if p.kind == planArray {
			if len(items) != rv.Len() {
				return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
					Path(path...).
					GoType(p.goType.String()).
					Detail("array of %d items", len(items)).
					Build()
			}
		} else if len(items) == 0 {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		} else {
			rv.Set(reflect.MakeSlice(p.goType, len(items), len(items)))
		}
		for i, it := range items {
			if err := fromValue(rv.Index(i), it, p.elem, append(path, itemName(i))); err != nil {
				return err
			}
		}
		return nil
	case planString:
		if v.Tag() != tag.Array {
			return mismatch(path, p, v)
		}
		buf := make([]byte, 0, len(v.Items()))
		for _, it := range v.Items() {
			if it.Tag() != tag.Char {
				return mismatch(path, p, v)
			}
			buf = utf8.AppendRune(buf, it.Char())
		}
		rv.SetString(string(buf))
		return nil
	}
	return errors.Unsupported(errors.PhaseDecode, "unhandled plan for "+p.goType.String())
}

func setPrim(rv reflect.Value, v value.Value, p *plan, path []string) error {
	if v.Tag() != p.prim {
		return mismatch(path, p, v)
	}
	switch {
	case p.prim == tag.Bool:
		rv.SetBool(v.Bool())
	case p.prim.IsUnsigned():
		rv.SetUint(v.Uint())
	case p.prim.IsSigned():
		rv.SetInt(v.Int())
	case p.prim == tag.Char:
		rv.SetInt(int64(v.Char()))
	case p.prim == tag.Float:
		if v.IsDouble() && !p.double {
			return errors.GoTypeMismatch(errors.PhaseDecode, path, p.goType.String(), "f64")
		}
		rv.SetFloat(v.Float())
	}
	return nil
}
