package protocol

import (
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// checkShape 按目标类型逐项核对 msgpack 编码：结构体必须是字段数相等的数组，
// 标量必须是对应类型的编码。msgpack 会把 nil、空数组、map 静默解成零值，这里一律拒绝。
// 只有切片允许 nil。
func checkShape(dec *msgpack.Decoder, t reflect.Type) error {
	code, err := dec.PeekCode()
	if err != nil {
		return err
	}
	switch t.Kind() {
	case reflect.Struct:
		want := exportedFields(t)
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return fmt.Errorf("%s: %w", t.Name(), err)
		}
		if n != want {
			return fmt.Errorf("%s: expected array of %d fields, got %s", t.Name(), want, describe(code, n))
		}
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if err := checkShape(dec, f.Type); err != nil {
				return fmt.Errorf("%s.%s: %w", t.Name(), f.Name, err)
			}
		}
		return nil
	case reflect.Slice:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := checkShape(dec, t.Elem()); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return nil
	case reflect.Bool:
		if code != msgpcode.True && code != msgpcode.False {
			return fmt.Errorf("expected bool, got code 0x%02x", code)
		}
	case reflect.Float32, reflect.Float64:
		if code != msgpcode.Float && code != msgpcode.Double {
			return fmt.Errorf("expected float, got code 0x%02x", code)
		}
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !isInt(code) {
			return fmt.Errorf("expected integer, got code 0x%02x", code)
		}
	default:
		return fmt.Errorf("unsupported kind %s", t.Kind())
	}
	return dec.Skip()
}

func exportedFields(t reflect.Type) int {
	n := 0
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			n++
		}
	}
	return n
}

func isInt(c byte) bool {
	if msgpcode.IsFixedNum(c) {
		return true
	}
	switch c {
	case msgpcode.Uint8, msgpcode.Uint16, msgpcode.Uint32, msgpcode.Uint64,
		msgpcode.Int8, msgpcode.Int16, msgpcode.Int32, msgpcode.Int64:
		return true
	}
	return false
}

func describe(code byte, n int) string {
	if code == msgpcode.Nil {
		return "nil"
	}
	return fmt.Sprintf("%d elements", n)
}
