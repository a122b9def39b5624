package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind Value 的类型标签
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value 设备载荷的标签联合（object/array/number/string/bool/null）
// 零值为 null。
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Null 返回 null 值
func Null() Value { return Value{} }

// Bool 构造布尔值
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number 构造数值
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String 构造字符串
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array 构造数组
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Object 构造对象
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Get 读取对象字段；非对象返回 false
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// Fields 返回对象字段（非对象为 nil）
func (v Value) Fields() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Items 返回数组元素（非数组为 nil）
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Str 返回字符串内容
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsNumber 数值强转：数值直接返回，字符串按十进制浮点解析，其余均视为非数值。
// NaN/Inf 不算数值。
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// IsEmpty null、空串、空数组、空对象
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == ""
	case KindArray:
		return len(v.arr) == 0
	case KindObject:
		return len(v.obj) == 0
	default:
		return false
	}
}

// Truthy 非空且非 false、非 0
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	default:
		return !v.IsEmpty()
	}
}

// Equal 结构相等
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, f := range v.obj {
			g, ok := o.obj[k]
			if !ok || !f.Equal(g) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface 转换为 encoding/json 风格的 interface{}
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]interface{}, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj))
		for k, f := range v.obj {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromInterface 从 encoding/json 解码结果构造 Value；不认识的类型返回错误
func FromInterface(x interface{}) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t.String(), err)
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			val, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = val
		}
		return Array(items...), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			val, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = val
		}
		return Object(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported payload type %T", x)
	}
}

// ParseJSON 解析 JSON 文本为 Value（整段必须是单个 JSON 值）
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var x interface{}
	if err := dec.Decode(&x); err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("unexpected data after JSON value")
	}
	return FromInterface(x)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// String 调试输出，对象键按字典序
func (v Value) String() string {
	switch v.kind {
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + ":" + v.obj[k].String()
		}
		return "{" + strings.Join(parts, ",") + "}"
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		b, err := v.MarshalJSON()
		if err != nil {
			return "<invalid>"
		}
		return string(b)
	}
}
