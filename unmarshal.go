package cod

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Unmarshal stores the variables and children of obj in the value pointed
// to by v. If v is not a pointer to a struct, Unmarshal returns an error.
//
// Unmarshal uses struct tags to map COD names to struct fields:
//   - `cod:"Name"` - maps the variable or child object "Name" to this field
//   - `cod:"Name,required"` - fails if neither exists
//   - `cod:"-"` - ignores this field
//
// Untagged fields use the field name. Struct fields read a child object;
// slices of structs read every child with that name, or every child when
// the tag is "*".
//
// Example:
//
//	type House struct {
//	    ID     int    `cod:"Id"`
//	    Gfx    int    `cod:"Gfx"`
//	    Size   []int  `cod:"Size"`
//	    Kind   string `cod:"Kind"`
//	    Costs  struct {
//	        Money int `cod:"Money"`
//	    } `cod:"BAUKOST"`
//	}
func Unmarshal(obj *Object, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("unmarshal target must be a non-nil pointer")
	}

	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}
	if obj == nil {
		return fmt.Errorf("unmarshal source object is nil")
	}
	return unmarshalObject(obj, elem)
}

// unmarshalObject fills a struct value from an object
func unmarshalObject(obj *Object, v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		tag := field.Tag.Get("cod")
		if tag == "-" {
			continue
		}

		name, opts := parseTag(tag)
		if name == "" {
			name = field.Name
		}

		found, err := setFieldFromObject(fieldValue, obj, name)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if !found && hasOption(opts, "required") {
			return fmt.Errorf("required field %s not found in object %s", name, obj.Name)
		}
	}

	return nil
}

// setFieldFromObject looks name up as a variable first, then as a child
// object, and stores it in field.
func setFieldFromObject(field reflect.Value, obj *Object, name string) (bool, error) {
	target := field.Type()
	if target.Kind() == reflect.Ptr {
		target = target.Elem()
	}

	if target.Kind() == reflect.Slice && elemIsStruct(target.Elem()) {
		var children []*Object
		for _, c := range obj.Objects {
			if name == "*" || c.Name == name {
				children = append(children, c)
			}
		}
		if len(children) == 0 {
			return false, nil
		}
		return true, setObjectSlice(field, children)
	}

	if target.Kind() == reflect.Struct {
		child := obj.Child(name)
		if child == nil {
			return false, nil
		}
		if field.Kind() == reflect.Ptr {
			ptr := reflect.New(target)
			if err := unmarshalObject(child, ptr.Elem()); err != nil {
				return true, err
			}
			field.Set(ptr)
			return true, nil
		}
		return true, unmarshalObject(child, field)
	}

	variable, ok := obj.Variable(name)
	if !ok {
		return false, nil
	}
	return true, setField(field, variable)
}

func elemIsStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

func setObjectSlice(field reflect.Value, children []*Object) error {
	sliceType := field.Type()
	if sliceType.Kind() == reflect.Ptr {
		sliceType = sliceType.Elem()
	}
	slice := reflect.MakeSlice(sliceType, len(children), len(children))
	for i, child := range children {
		item := slice.Index(i)
		if item.Kind() == reflect.Ptr {
			ptr := reflect.New(item.Type().Elem())
			if err := unmarshalObject(child, ptr.Elem()); err != nil {
				return fmt.Errorf("object %s: %w", child.Name, err)
			}
			item.Set(ptr)
			continue
		}
		if err := unmarshalObject(child, item); err != nil {
			return fmt.Errorf("object %s: %w", child.Name, err)
		}
	}
	if field.Kind() == reflect.Ptr {
		ptr := reflect.New(sliceType)
		ptr.Elem().Set(slice)
		field.Set(ptr)
		return nil
	}
	field.Set(slice)
	return nil
}

// setField stores a variable in a scalar, slice or pointer field
func setField(field reflect.Value, v Variable) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(field, v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return setUint(field, v)
	case reflect.Float32, reflect.Float64:
		return setFloat(field, v)
	case reflect.Bool:
		return setBool(field, v)
	case reflect.Slice:
		return setSlice(field, v)
	case reflect.Ptr:
		ptr := reflect.New(field.Type().Elem())
		if err := setField(ptr.Elem(), v); err != nil {
			return err
		}
		field.Set(ptr)
	case reflect.Interface:
		if v.Value != nil {
			field.Set(reflect.ValueOf(v.Value))
		}
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

func setInt(field reflect.Value, v Variable) error {
	n, ok := v.Int()
	if !ok {
		return fmt.Errorf("cannot convert %s value %q to int", v.Kind(), v.String())
	}
	field.SetInt(int64(n))
	return nil
}

func setUint(field reflect.Value, v Variable) error {
	n, ok := v.Int()
	if !ok || n < 0 {
		return fmt.Errorf("cannot convert %s value %q to uint", v.Kind(), v.String())
	}
	field.SetUint(uint64(n))
	return nil
}

func setFloat(field reflect.Value, v Variable) error {
	f, ok := v.Float()
	if !ok {
		return fmt.Errorf("cannot convert %s value %q to float", v.Kind(), v.String())
	}
	field.SetFloat(f)
	return nil
}

func setBool(field reflect.Value, v Variable) error {
	if n, ok := v.Int(); ok {
		field.SetBool(n != 0)
		return nil
	}
	b, err := parseBool(v.String())
	if err != nil {
		return err
	}
	field.SetBool(b)
	return nil
}

// setSlice reads arrays element-wise; a scalar becomes a one-element slice.
func setSlice(field reflect.Value, v Variable) error {
	elems := v.Array()
	if v.Kind() != KindArray {
		elems = []Variable{v}
	}
	slice := reflect.MakeSlice(field.Type(), len(elems), len(elems))
	for i, e := range elems {
		if err := setField(slice.Index(i), e); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	field.Set(slice)
	return nil
}

// Helper functions

func parseTag(tag string) (string, []string) {
	parts := strings.Split(tag, ",")
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

func hasOption(opts []string, option string) bool {
	for _, opt := range opts {
		if opt == option {
			return true
		}
	}
	return false
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "ja", "on":
		return true, nil
	case "false", "no", "nein", "off":
		return false, nil
	default:
		if n, err := strconv.Atoi(s); err == nil {
			return n != 0, nil
		}
		return false, fmt.Errorf("invalid bool value: %s", s)
	}
}
