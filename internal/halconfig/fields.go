package halconfig

import (
	"reflect"
	"strings"

	"github.com/opmodel/hal/internal/secrets"
)

var nodeType = reflect.TypeOf((*Node)(nil)).Elem()

// FieldTags are the hal struct-tag markers of a scalar field.
type FieldTags struct {
	// LocalFile marks a path to a file on the machine running hal.
	LocalFile bool

	// Secret marks a value that may be a secret reference to inline.
	Secret bool

	// SecretFile marks a path whose file contents may be a secret reference.
	SecretFile bool
}

// Field is a scalar (non-child) field of a node.
type Field struct {
	// Name is the YAML key of the field.
	Name string
	Tags FieldTags

	value reflect.Value
}

// Value returns the field value. Nil pointers yield nil and other pointers
// are dereferenced.
func (f Field) Value() any {
	v := f.value
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	return v.Interface()
}

// String returns the field value when it is a string, else "".
func (f Field) String() string {
	if f.value.Kind() == reflect.String {
		return f.value.String()
	}
	return ""
}

// SetString overwrites a string field.
func (f Field) SetString(s string) bool {
	if f.value.Kind() != reflect.String || !f.value.CanSet() {
		return false
	}
	f.value.SetString(s)
	return true
}

// SetBool overwrites a bool or *bool field.
func (f Field) SetBool(b bool) bool {
	if !f.value.CanSet() {
		return false
	}
	switch {
	case f.value.Kind() == reflect.Bool:
		f.value.SetBool(b)
	case f.value.Kind() == reflect.Pointer && f.value.Type().Elem().Kind() == reflect.Bool:
		f.value.Set(reflect.ValueOf(&b))
	default:
		return false
	}
	return true
}

// Fields returns the scalar fields of n in declaration order. Fields holding
// child nodes, unexported fields and fields tagged `yaml:"-"` or `hal:"-"`
// are skipped.
func Fields(n Node) []Field {
	v := reflect.ValueOf(n)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	var out []Field
	collectFields(v, &out)
	return out
}

func collectFields(v reflect.Value, out *[]Field) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		yamlTag := sf.Tag.Get("yaml")
		name, opts, _ := strings.Cut(yamlTag, ",")

		if sf.Anonymous && strings.Contains(opts, "inline") && sf.Type.Kind() == reflect.Struct {
			collectFields(v.Field(i), out)
			continue
		}
		if !sf.IsExported() || name == "-" || sf.Tag.Get("hal") == "-" {
			continue
		}
		if holdsNodes(sf.Type) {
			continue
		}
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		*out = append(*out, Field{Name: name, Tags: parseTags(sf.Tag.Get("hal")), value: v.Field(i)})
	}
}

func holdsNodes(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return t.Elem().Implements(nodeType)
	default:
		return t.Implements(nodeType)
	}
}

func parseTags(tag string) FieldTags {
	var tags FieldTags
	for _, part := range strings.Split(tag, ",") {
		switch strings.TrimSpace(part) {
		case "localfile":
			tags.LocalFile = true
		case "secret":
			tags.Secret = true
		case "secretfile":
			tags.SecretFile = true
		}
	}
	return tags
}

// LocalFiles returns the non-empty local-file fields of n alone whose value is
// a plain path rather than a secret reference.
func LocalFiles(n Node) []string {
	var files []string
	for _, f := range Fields(n) {
		if !f.Tags.LocalFile {
			continue
		}
		path := f.String()
		if path == "" || secrets.IsReference(path) {
			continue
		}
		files = append(files, path)
	}
	return files
}

// CollectLocalFiles returns the local files of n and every descendant.
// Duplicates are kept.
func CollectLocalFiles(n Node) []string {
	var files []string
	Walk(n, func(node Node) {
		files = append(files, LocalFiles(node)...)
	})
	return files
}
