package hclgrid

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/incisors/dagflow/internal/value"
)

// toCty converts an engine value into its cty equivalent for expression
// evaluation. All numeric kinds widen into cty.Number.
func toCty(v value.Value) (cty.Value, error) {
	switch v.Kind() {
	case value.Nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case value.Int:
		i, _ := v.AsInt()
		return cty.NumberIntVal(int64(i)), nil
	case value.Int64:
		i, _ := v.AsInt64()
		return cty.NumberIntVal(i), nil
	case value.Uint:
		u, _ := v.AsUint()
		return cty.NumberUIntVal(uint64(u)), nil
	case value.Uint64:
		u, _ := v.AsUint64()
		return cty.NumberUIntVal(u), nil
	case value.Float32:
		f, _ := v.AsFloat32()
		return cty.NumberFloatVal(float64(f)), nil
	case value.Float64:
		f, _ := v.AsFloat64()
		return cty.NumberFloatVal(f), nil
	case value.String:
		s, _ := v.AsString()
		return cty.StringVal(s), nil
	case value.IntSlice:
		s, _ := v.AsIntSlice()
		elems := make([]cty.Value, len(s))
		for i, e := range s {
			elems[i] = cty.NumberIntVal(int64(e))
		}
		return listOrEmpty(elems, cty.Number), nil
	case value.Int64Slice:
		s, _ := v.AsInt64Slice()
		elems := make([]cty.Value, len(s))
		for i, e := range s {
			elems[i] = cty.NumberIntVal(e)
		}
		return listOrEmpty(elems, cty.Number), nil
	case value.Float32Slice:
		s, _ := v.AsFloat32Slice()
		elems := make([]cty.Value, len(s))
		for i, e := range s {
			elems[i] = cty.NumberFloatVal(float64(e))
		}
		return listOrEmpty(elems, cty.Number), nil
	case value.Float64Slice:
		s, _ := v.AsFloat64Slice()
		elems := make([]cty.Value, len(s))
		for i, e := range s {
			elems[i] = cty.NumberFloatVal(e)
		}
		return listOrEmpty(elems, cty.Number), nil
	case value.StringSlice:
		s, _ := v.AsStringSlice()
		elems := make([]cty.Value, len(s))
		for i, e := range s {
			elems[i] = cty.StringVal(e)
		}
		return listOrEmpty(elems, cty.String), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value kind %s", v.Kind())
	}
}

func listOrEmpty(elems []cty.Value, elemType cty.Type) cty.Value {
	if len(elems) == 0 {
		return cty.ListValEmpty(elemType)
	}
	return cty.ListVal(elems)
}

// fromCty converts an evaluated cty value into an engine value. Numbers
// collapse into Float64 and numeric sequences into Float64Slice; HCL
// expressions do not preserve integer widths, so the float kinds are
// the faithful mapping.
func fromCty(cv cty.Value) (value.Value, error) {
	if cv.IsNull() || !cv.IsKnown() {
		return value.Value{}, nil
	}
	ty := cv.Type()
	switch {
	case ty == cty.Number:
		f, _ := cv.AsBigFloat().Float64()
		return value.NewFloat64(f), nil
	case ty == cty.String:
		return value.NewString(cv.AsString()), nil
	case ty.IsTupleType() || ty.IsListType():
		var floats []float64
		var strings []string
		sawString := false
		sawNumber := false
		for it := cv.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			switch elem.Type() {
			case cty.Number:
				f, _ := elem.AsBigFloat().Float64()
				floats = append(floats, f)
				sawNumber = true
			case cty.String:
				strings = append(strings, elem.AsString())
				sawString = true
			default:
				return value.Value{}, fmt.Errorf("unsupported sequence element type %s", elem.Type().FriendlyName())
			}
		}
		if sawString && sawNumber {
			return value.Value{}, fmt.Errorf("mixed sequence element types")
		}
		if sawString {
			return value.NewStringSlice(strings), nil
		}
		return value.NewFloat64Slice(floats), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
