package codec

import (
	"bytes"
	"math"
	"reflect"
	"sync"
	"testing"

	"lukechampine.com/uint128"

	"github.com/wippyai/sml/channel"
	"github.com/wippyai/sml/errors"
	"github.com/wippyai/sml/tag"
	"github.com/wippyai/sml/value"
)

type point struct {
	X      uint16
	Y      int32
	Label  string
	Mark   rune `sml:"mark,char"`
	Skip   int  `sml:"-"`
	hidden bool
}

// celsius is stored as tenths of a degree in an i16.
type celsius float32

func (c celsius) MarshalSML() (value.Value, error) {
	return value.Int16(int16(math.Round(float64(c) * 10))), nil
}

func (c *celsius) UnmarshalSML(v value.Value) error {
	if v.Tag() != tag.I16 {
		return errors.TypeMismatch(errors.PhaseDecode, nil, "i16", v.Type().String())
	}
	*c = celsius(float32(v.Int()) / 10)
	return nil
}

type reading struct {
	ID      uint128.Uint128
	Delta   value.Int128
	Origin  *point
	Temp    celsius
	Last    *celsius
	Samples []float64
	Grid    [2]uint8
	Extra   value.Value
	Ratio   float32
	Count   int
	Ok      bool
}

type node struct {
	Value uint8
	Next  *node
}

type writeOnly struct{}

func (writeOnly) MarshalSML() (value.Value, error) { return value.Bool(true), nil }

func marshalBytes(t *testing.T, v any, opts ...Option) []byte {
	t.Helper()
	_, data := encodeBits(t, func(e *Encoder) error { return Marshal(e, v) }, opts...)
	return data
}

func TestMarshalStruct(t *testing.T) {
	p := point{X: 300, Y: -7, Label: "hé", Mark: '€', Skip: 99, hidden: true}
	got, err := ToValue(p)
	if err != nil {
		t.Fatal(err)
	}
	want := value.Struct(
		value.Uint16(300),
		value.Int32(-7),
		value.Array(value.Char('h'), value.Char('é')),
		value.Char('€'),
	)
	if !got.Equal(want) {
		t.Errorf("ToValue = %s, want %s", got, want)
	}

	var back point
	if err := Unmarshal(newDecoder(t, marshalBytes(t, &p)), &back); err != nil {
		t.Fatal(err)
	}
	p.Skip, p.hidden = 0, false
	if back != p {
		t.Errorf("round trip = %+v, want %+v", back, p)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	last := celsius(-3.5)
	in := reading{
		ID:      uint128.New(math.MaxUint64, 1),
		Delta:   value.Int128From64(-1 << 40),
		Origin:  &point{X: 1, Label: "o", Mark: 'x'},
		Temp:    21.5,
		Last:    &last,
		Samples: []float64{0.5, -2},
		Grid:    [2]uint8{4, 5},
		Extra:   value.Some(value.Char('z')),
		Ratio:   0.75,
		Count:   -12,
		Ok:      true,
	}
	for _, mode := range []ArrayMode{ArraySequence, ArrayPacked} {
		t.Run(mode.String(), func(t *testing.T) {
			data := marshalBytes(t, in, WithLengthBits(5), WithArrayMode(mode))
			var out reading
			if err := Unmarshal(newDecoder(t, data, WithLengthBits(5)), &out); err != nil {
				t.Fatal(err)
			}
			if !out.Extra.Equal(in.Extra) {
				t.Errorf("Extra = %s, want %s", out.Extra, in.Extra)
			}
			want := in
			out.Extra, want.Extra = value.Value{}, value.Value{}
			if !reflect.DeepEqual(out, want) {
				t.Errorf("round trip = %+v\nwant %+v", out, want)
			}
		})
	}
}

func TestMarshalNilPointerAndSlice(t *testing.T) {
	in := reading{Extra: value.Bool(false)}
	v, err := ToValue(in)
	if err != nil {
		t.Fatal(err)
	}
	fields := v.Fields()
	if _, ok := fields[2].Elem(); ok {
		t.Errorf("nil pointer encoded as %s", fields[2])
	}
	if got := fields[2].ElemType().String(); got != "struct{u16,i32,array<char>,char}" {
		t.Errorf("nil *point element type = %s", got)
	}
	if got := fields[4].ElemType(); got.Tag != tag.I16 {
		t.Errorf("nil *celsius element type = %s", got)
	}
	if n := len(fields[5].Items()); n != 0 {
		t.Errorf("nil slice encoded with %d items", n)
	}

	var out reading
	if err := FromValue(v, &out); err != nil {
		t.Fatal(err)
	}
	if out.Origin != nil || out.Last != nil || out.Samples != nil {
		t.Errorf("expected nil pointers and slice, got %+v", out)
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		goType reflect.Type
		want   string
	}{
		{reflect.TypeFor[bool](), "bool"},
		{reflect.TypeFor[uint](), "u64"},
		{reflect.TypeFor[int](), "i64"},
		{reflect.TypeFor[float64](), "float"},
		{reflect.TypeFor[string](), "array<char>"},
		{reflect.TypeFor[*uint8](), "option<u8>"},
		{reflect.TypeFor[[]int16](), "array<i16>"},
		{reflect.TypeFor[[3]bool](), "array<bool>"},
		{reflect.TypeFor[uint128.Uint128](), "u128"},
		{reflect.TypeFor[value.Int128](), "i128"},
		{reflect.TypeFor[point](), "struct{u16,i32,array<char>,char}"},
		{reflect.TypeFor[*celsius](), "option<>"},
		{reflect.TypeFor[reading](), "struct"},
	}
	var c Compiler
	for _, tt := range tests {
		t.Run(tt.goType.String(), func(t *testing.T) {
			got, err := c.TypeOf(tt.goType)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("TypeOf = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	var c Compiler
	tests := []struct {
		name   string
		goType reflect.Type
		kind   errors.Kind
	}{
		{"recursive", reflect.TypeFor[node](), errors.KindUnsupported},
		{"map", reflect.TypeFor[map[string]int](), errors.KindUnsupported},
		{"chan field", reflect.TypeFor[struct{ C chan int }](), errors.KindUnsupported},
		{"char on non-int32", reflect.TypeFor[struct {
			C uint8 `sml:",char"`
		}](), errors.KindTypeMismatch},
		{"nil", nil, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.TypeOf(tt.goType)
			if !errors.HasKind(err, tt.kind) {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	t.Run("non-pointer target", func(t *testing.T) {
		var p point
		err := FromValue(value.Struct(), p)
		if !errors.HasKind(err, errors.KindInvalidInput) {
			t.Errorf("expected invalid_input, got %v", err)
		}
	})

	t.Run("wrong shape", func(t *testing.T) {
		var p point
		err := FromValue(value.Struct(value.Bool(true)), &p)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("f64 into float32", func(t *testing.T) {
		var f float32
		err := FromValue(value.Float64(1), &f)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("fixed array length", func(t *testing.T) {
		var a [2]uint8
		err := FromValue(value.Array(value.Uint8(1)), &a)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("custom unmarshaler error", func(t *testing.T) {
		var r reading
		v, err := ToValue(reading{Extra: value.Bool(true)})
		if err != nil {
			t.Fatal(err)
		}
		fields := v.Fields()
		fields[3] = value.Bool(true)
		err = FromValue(value.Struct(fields...), &r)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("decoded type differs", func(t *testing.T) {
		var p point
		data := marshalBytes(t, value.Uint8(1))
		err := Unmarshal(newDecoder(t, data), &p)
		if !errors.HasKind(err, errors.KindTypeMismatch) {
			t.Errorf("expected type_mismatch, got %v", err)
		}
	})

	t.Run("marshaler without unmarshaler", func(t *testing.T) {
		var w writeOnly
		err := FromValue(value.Bool(true), &w)
		if !errors.HasKind(err, errors.KindUnsupported) {
			t.Errorf("expected unsupported, got %v", err)
		}
	})
}

func TestMarshalErrors(t *testing.T) {
	if _, err := ToValue(nil); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("nil: expected invalid_input, got %v", err)
	}
	if _, err := ToValue((*point)(nil)); !errors.HasKind(err, errors.KindInvalidInput) {
		t.Errorf("nil pointer: expected invalid_input, got %v", err)
	}
	if _, err := ToValue("\xff"); !errors.HasKind(err, errors.KindInvalidUTF8) {
		t.Errorf("bad string: expected invalid_utf8, got %v", err)
	}

	var buf bytes.Buffer
	w := channel.NewWriter(&buf)
	e, _ := NewEncoder(w)
	err := Marshal(e, struct{ N uint64 }{N: math.MaxUint64})
	if !errors.HasKind(err, errors.KindWidthOverflow) {
		t.Errorf("expected width_overflow, got %v", err)
	}
	if w.Position() != 0 {
		t.Errorf("%d bits written before failing", w.Position())
	}
}

func TestCompilerConcurrentUse(t *testing.T) {
	var c Compiler
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.ToValue(point{X: uint16(i), Label: "p"})
			if err != nil {
				errs <- err
				return
			}
			var p point
			if err := c.FromValue(v, &p); err != nil {
				errs <- err
				return
			}
			if p.X != uint16(i) {
				errs <- errors.InvalidData(errors.PhaseDecode, nil, "value lost")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
