package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// NewYAMLFileSource reads a YAML document and flattens nested mappings into
// dotted keys.
func NewYAMLFileSource(path string) (PropertySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read yaml source %s: %w", path, err)
	}
	return NewYAMLSource(path, data)
}

// NewYAMLSource parses data as YAML. name is used for diagnostics.
func NewYAMLSource(name string, data []byte) (PropertySource, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse yaml source %s: %w", name, err)
	}
	raw := map[string]string{}
	flattenYAML("", doc, raw)
	return newIndexedSource(name, raw), nil
}

func flattenYAML(prefix string, value any, out map[string]string) {
	switch typed := value.(type) {
	case map[string]any:
		for key, nested := range typed {
			flattenYAML(joinKey(prefix, key), nested, out)
		}
	case map[any]any:
		for key, nested := range typed {
			flattenYAML(joinKey(prefix, fmt.Sprint(key)), nested, out)
		}
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			parts = append(parts, fmt.Sprint(item))
		}
		out[prefix] = strings.Join(parts, ",")
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(typed)
		}
	}
}

// NewHCLFileSource reads an HCL file whose top-level attributes (and nested
// object values) become dotted keys.
func NewHCLFileSource(path string) (PropertySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read hcl source %s: %w", path, err)
	}
	return NewHCLSource(path, data)
}

// NewHCLSource parses data as native HCL syntax.
func NewHCLSource(name string, data []byte) (PropertySource, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, name)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse hcl source %s: %w", name, diags)
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: hcl source %s: %w", name, diags)
	}

	names := make([]string, 0, len(attrs))
	for attrName := range attrs {
		names = append(names, attrName)
	}
	sort.Strings(names)

	raw := map[string]string{}
	for _, attrName := range names {
		value, diags := attrs[attrName].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("config: hcl source %s attribute %q: %w", name, attrName, diags)
		}
		flattenCty(attrName, value, raw)
	}
	return newIndexedSource(name, raw), nil
}

func flattenCty(prefix string, value cty.Value, out map[string]string) {
	if value.IsNull() || !value.IsKnown() {
		return
	}
	ty := value.Type()
	switch {
	case ty == cty.String:
		out[prefix] = value.AsString()
	case ty == cty.Number:
		out[prefix] = value.AsBigFloat().Text('f', -1)
	case ty == cty.Bool:
		out[prefix] = strconv.FormatBool(value.True())
	case ty.IsObjectType() || ty.IsMapType():
		for it := value.ElementIterator(); it.Next(); {
			key, nested := it.Element()
			flattenCty(joinKey(prefix, key.AsString()), nested, out)
		}
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var parts []string
		for it := value.ElementIterator(); it.Next(); {
			_, item := it.Element()
			if item.Type() == cty.String && item.IsKnown() && !item.IsNull() {
				parts = append(parts, item.AsString())
			}
		}
		out[prefix] = strings.Join(parts, ",")
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
