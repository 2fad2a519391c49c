package processing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/matthewnorman/geoscripts/mapslicehelp"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type Kind int

const (
	Null Kind = iota
	String
	Integer
	Float
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Integer:
		return "integer"
	case Float:
		return "float"
	default:
		return "unknown"
	}
}

// Value is a scalar attribute value: a string, an integer, a float or null
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
}

func NullValue() Value           { return Value{kind: Null} }
func StringValue(s string) Value { return Value{kind: String, str: s} }
func IntValue(i int64) Value     { return Value{kind: Integer, i: i} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }

// NewValue converts a value as produced by a database driver or a JSON decoder.
// Anything that is not a scalar is kept as its JSON text.
func NewValue(v interface{}) (Value, error) {
	switch v := v.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(v), nil
	case []byte:
		return StringValue(string(v)), nil
	case int:
		return IntValue(int64(v)), nil
	case int32:
		return IntValue(int64(v)), nil
	case int64:
		return IntValue(v), nil
	case float32:
		return FloatValue(float64(v)), nil
	case float64:
		return FloatValue(v), nil
	case bool:
		return StringValue(strconv.FormatBool(v)), nil
	case time.Time:
		return StringValue(v.Format(time.RFC3339)), nil
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			return Value{}, err
		}
		return StringValue(string(raw)), nil
	default:
		return Value{}, fmt.Errorf("unexpected type for attribute value: %T", v)
	}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == Null
}

// String renders the value as it appears in the output. Null renders as an empty string.
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.str
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

// Properties maps attribute names to values, in the order of the source's columns
type Properties struct {
	m *orderedmap.OrderedMap[string, Value]
}

func NewProperties() *Properties {
	return &Properties{m: orderedmap.New[string, Value]()}
}

func (p *Properties) Set(name string, v Value) {
	p.m.Set(name, v)
}

// Lookup returns the value for name and whether the attribute is present at all.
// A present attribute can still hold a null value.
func (p *Properties) Lookup(name string) (Value, bool) {
	if p == nil {
		return Value{}, false
	}
	return p.m.Get(name)
}

func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}
	return mapslicehelp.OrderedMapKeys(p.m)
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return p.m.Len()
}
