// pkg/syntax/dump.go
package syntax

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var spanType = reflect.TypeOf(Span{})

// Dump renders a parse tree as indented text. Span fields, unexported
// fields and zero-valued fields are left out, so trees that differ only in
// source positions dump identically.
func Dump(node any) string {
	var sb strings.Builder
	dumpValue(&sb, reflect.ValueOf(node), 0)
	return sb.String()
}

func dumpValue(sb *strings.Builder, v reflect.Value, indent int) {
	if !v.IsValid() {
		sb.WriteString("nil")
		return
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			sb.WriteString("nil")
			return
		}
		dumpValue(sb, v.Elem(), indent)
		return
	case reflect.Struct:
		dumpStruct(sb, v, indent)
		return
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteString("[\n")
		for i := 0; i < v.Len(); i++ {
			pad(sb, indent+1)
			dumpValue(sb, v.Index(i), indent+1)
			sb.WriteString("\n")
		}
		pad(sb, indent)
		sb.WriteString("]")
		return
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		sb.WriteString("{\n")
		for _, k := range keys {
			pad(sb, indent+1)
			fmt.Fprintf(sb, "%v: ", k.Interface())
			dumpValue(sb, v.MapIndex(k), indent+1)
			sb.WriteString("\n")
		}
		pad(sb, indent)
		sb.WriteString("}")
		return
	case reflect.String:
		fmt.Fprintf(sb, "%q", v.String())
		return
	}

	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			sb.WriteString(s.String())
			return
		}
		fmt.Fprintf(sb, "%v", v.Interface())
		return
	}
	fmt.Fprintf(sb, "%v", v)
}

func dumpStruct(sb *strings.Builder, v reflect.Value, indent int) {
	t := v.Type()
	sb.WriteString(t.Name())
	sb.WriteString("{")

	wrote := false
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !field.IsExported() || field.Type == spanType || isEmpty(fv) {
			continue
		}
		if !wrote {
			sb.WriteString("\n")
			wrote = true
		}
		pad(sb, indent+1)
		sb.WriteString(field.Name)
		sb.WriteString(": ")
		dumpValue(sb, fv, indent+1)
		sb.WriteString("\n")
	}
	if wrote {
		pad(sb, indent)
	}
	sb.WriteString("}")
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	}
	return v.IsZero()
}

func pad(sb *strings.Builder, indent int) {
	for i := 0; i < indent; i++ {
		sb.WriteString("  ")
	}
}
