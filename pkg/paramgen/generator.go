// Package paramgen is the Go analogue of the derive macro described in
// spec §4.4/§9 ("a compile-time generator consuming an annotated struct
// definition"). Rust expresses this as a proc-macro; idiomatic Go expresses
// the same "declarative struct -> generated code" pattern as a
// go:generate-driven source generator that walks the struct's AST and
// struct tags and emits a companion Go file (path chosen by the caller)
// implementing paramset.Set.
//
// Supported field types: u8/u16/u32/u64, i8/i16/i32/i64 (as their Go
// equivalents uint8.../int8...), float32, float64. Fields of any other type,
// including int/uint whose width is platform-dependent, are skipped without
// an error, as are fields whose tag is not a hex hash. A struct whose doc comment
// contains the marker "+paramgen:aggregate" is treated as an aggregate
// whose fields are themselves generated parameter sets (spec §4.4).
package paramgen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/template"
)

// Field describes one tagged struct field destined for the generated
// Get/Set switch.
type Field struct {
	Name string
	Hash uint32
	Kind string // one of: u8,u16,u32,u64,i8,i16,i32,i64,f32,f64
}

// Struct describes one declarative parameter struct found in a source
// file.
type Struct struct {
	Name       string
	Aggregate  bool
	Fields     []Field     // leaf struct: primitive fields
	SubSets    []string    // aggregate struct: names of member fields, in order
}

const aggregateMarker = "+paramgen:aggregate"

// ParseFile walks src (Go source text) for struct types carrying a `param`
// tag on their fields, or the aggregate doc-comment marker.
func ParseFile(filename string, src []byte) ([]Struct, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("paramgen: parse %s: %w", filename, err)
	}

	var out []Struct
	ast.Inspect(f, func(n ast.Node) bool {
		gd, ok := n.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			return true
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}

			s := Struct{Name: ts.Name.Name}
			if gd.Doc != nil && strings.Contains(gd.Doc.Text(), aggregateMarker) {
				s.Aggregate = true
			}

			for _, field := range st.Fields.List {
				if len(field.Names) == 0 {
					continue
				}
				name := field.Names[0].Name
				if s.Aggregate {
					s.SubSets = append(s.SubSets, name)
					continue
				}
				if field.Tag == nil {
					continue
				}
				tagVal := reflect.StructTag(strings.Trim(field.Tag.Value, "`")).Get("param")
				if tagVal == "" {
					continue
				}
				hash, err := strconv.ParseUint(strings.TrimPrefix(tagVal, "0x"), 16, 32)
				if err != nil {
					continue
				}
				kind, ok := typeIdent(field.Type)
				if !ok {
					continue
				}
				s.Fields = append(s.Fields, Field{Name: name, Hash: uint32(hash), Kind: kind})
			}

			if len(s.Fields) > 0 || s.Aggregate {
				out = append(out, s)
			}
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func typeIdent(e ast.Expr) (string, bool) {
	id, ok := e.(*ast.Ident)
	if !ok {
		return "", false
	}
	switch id.Name {
	case "uint8", "uint16", "uint32", "uint64",
		"int8", "int16", "int32", "int64",
		"float32", "float64":
		return id.Name, true
	default:
		return "", false
	}
}

func widthBits(kind string) int {
	switch kind {
	case "uint8", "int8":
		return 8
	case "uint16", "int16":
		return 16
	case "uint32", "int32", "float32":
		return 32
	case "uint64", "int64", "float64":
		return 64
	}
	return 0
}

const fileTemplate = `// Code generated by paramgen. DO NOT EDIT.

package {{.Package}}

import (
	"encoding/binary"
	"io"
{{if .NeedsMath}}	"math"
{{end}}
	"github.com/raccoon-os/rccn-usr/pkg/paramset"
)

{{range .Structs}}
{{if .Aggregate}}
// Get implements paramset.Set by forwarding to each member in declaration
// order, first match wins.
func (p *{{.Name}}) Get(hash uint32, w io.Writer) (int, error) {
	agg := paramset.NewAggregateSet({{range $i, $s := .SubSets}}{{if $i}}, {{end}}p.{{$s}}{{end}})
	return agg.Get(hash, w)
}

// Set implements paramset.Set by forwarding to each member in declaration
// order, first successful write wins.
func (p *{{.Name}}) Set(hash uint32, cur *paramset.BitCursor) bool {
	agg := paramset.NewAggregateSet({{range $i, $s := .SubSets}}{{if $i}}, {{end}}p.{{$s}}{{end}})
	return agg.Set(hash, cur)
}
{{else}}
func (p *{{.Name}}) Get(hash uint32, w io.Writer) (int, error) {
	switch hash {
{{range .Fields}}	case 0x{{printf "%08X" .Hash}}:
		var buf [{{widthBytes .Kind}}]byte
{{putValue .Kind .Name}}		n, err := w.Write(buf[:])
		return n * 8, err
{{end}}	default:
		return 0, paramset.ErrUnknownParameter
	}
}

func (p *{{.Name}}) Set(hash uint32, cur *paramset.BitCursor) bool {
	switch hash {
{{range .Fields}}	case 0x{{printf "%08X" .Hash}}:
		raw, err := cur.ReadRawField()
		if err != nil {
			return false
		}
{{getValue .Kind .Name}}		return true
{{end}}	default:
		return false
	}
}
{{end}}
{{end}}
`

func widthBytes(kind string) int { return widthBits(kind) / 8 }

func putValue(kind, name string) string {
	switch kind {
	case "uint8":
		return fmt.Sprintf("\t\tbuf[0] = byte(p.%s)\n", name)
	case "int8":
		return fmt.Sprintf("\t\tbuf[0] = byte(p.%s)\n", name)
	case "uint16":
		return fmt.Sprintf("\t\tbinary.BigEndian.PutUint16(buf[:], p.%s)\n", name)
	case "int16":
		return fmt.Sprintf("\t\tbinary.BigEndian.PutUint16(buf[:], uint16(p.%s))\n", name)
	case "uint32":
		return fmt.Sprintf("\t\tbinary.BigEndian.PutUint32(buf[:], p.%s)\n", name)
	case "int32":
		return fmt.Sprintf("\t\tbinary.BigEndian.PutUint32(buf[:], uint32(p.%s))\n", name)
	case "uint64":
		return fmt.Sprintf("\t\tbinary.BigEndian.PutUint64(buf[:], p.%s)\n", name)
	case "int64":
		return fmt.Sprintf("\t\tbinary.BigEndian.PutUint64(buf[:], uint64(p.%s))\n", name)
	case "float32":
		return fmt.Sprintf("\t\tbinary.BigEndian.PutUint32(buf[:], math.Float32bits(p.%s))\n", name)
	case "float64":
		return fmt.Sprintf("\t\tbinary.BigEndian.PutUint64(buf[:], math.Float64bits(p.%s))\n", name)
	}
	return ""
}

func getValue(kind, name string) string {
	switch kind {
	case "uint8":
		return fmt.Sprintf("\t\tp.%s = uint8(paramset.NarrowInt(raw, 8))\n", name)
	case "int8":
		return fmt.Sprintf("\t\tp.%s = int8(paramset.NarrowInt(raw, 8))\n", name)
	case "uint16":
		return fmt.Sprintf("\t\tp.%s = uint16(paramset.NarrowInt(raw, 16))\n", name)
	case "int16":
		return fmt.Sprintf("\t\tp.%s = int16(paramset.NarrowInt(raw, 16))\n", name)
	case "uint32":
		return fmt.Sprintf("\t\tp.%s = uint32(paramset.NarrowInt(raw, 32))\n", name)
	case "int32":
		return fmt.Sprintf("\t\tp.%s = int32(paramset.NarrowInt(raw, 32))\n", name)
	case "uint64":
		return fmt.Sprintf("\t\tp.%s = raw\n", name)
	case "int64":
		return fmt.Sprintf("\t\tp.%s = int64(raw)\n", name)
	case "float32":
		return fmt.Sprintf("\t\tp.%s = paramset.RawToF32(raw)\n", name)
	case "float64":
		return fmt.Sprintf("\t\tp.%s = paramset.RawToF64(raw)\n", name)
	}
	return ""
}

// Generate renders the generated-file body for every struct in structs,
// for the given output package name.
func Generate(pkg string, structs []Struct) ([]byte, error) {
	tmpl, err := template.New("paramtable").Funcs(template.FuncMap{
		"widthBytes": widthBytes,
		"putValue":   putValue,
		"getValue":   getValue,
	}).Parse(fileTemplate)
	if err != nil {
		return nil, fmt.Errorf("paramgen: parse template: %w", err)
	}

	needsMath := false
	for _, s := range structs {
		for _, f := range s.Fields {
			if f.Kind == "float32" || f.Kind == "float64" {
				needsMath = true
			}
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Package   string
		Structs   []Struct
		NeedsMath bool
	}{Package: pkg, Structs: structs, NeedsMath: needsMath}); err != nil {
		return nil, fmt.Errorf("paramgen: render: %w", err)
	}
	return buf.Bytes(), nil
}
