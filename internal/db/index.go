package db

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DistanceMetric is the DISTANCE_METRIC of a vector field.
type DistanceMetric string

// Supported distance metrics.
const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm is the vector index algorithm.
type VectorAlgorithm string

// HNSW is approximate, FLAT is brute force.
const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// ParseVectorAlgorithm accepts "hnsw" or "flat" in any case. Empty means HNSW.
func ParseVectorAlgorithm(s string) (VectorAlgorithm, error) {
	switch VectorAlgorithm(strings.ToUpper(s)) {
	case "", VectorHNSW:
		return VectorHNSW, nil
	case VectorFlat:
		return VectorFlat, nil
	}
	return "", fmt.Errorf("unknown vector algorithm %q", s)
}

// IndexFieldType enumerates FT schema field types.
type IndexFieldType int

// Field types.
const (
	IndexFieldNumeric IndexFieldType = iota
	IndexFieldTag
	IndexFieldText
	IndexFieldVector
)

func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	case IndexFieldVector:
		return "VECTOR"
	}
	return "UNKNOWN"
}

// IndexField is one schema entry. Name is a JSONPath, Alias is what queries use.
type IndexField struct {
	Name     string
	Alias    string
	Type     IndexFieldType
	Sortable bool

	TagSeparator     string
	TagCaseSensitive bool

	VectorAlgo        VectorAlgorithm
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorM           int
	VectorEFConstruct int
}

// Attribute returns the name the field is queried by.
func (f *IndexField) Attribute() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// args renders the field as FT.CREATE SCHEMA arguments.
func (f *IndexField) args() []string {
	out := []string{f.Name}
	if f.Alias != "" {
		out = append(out, "AS", f.Alias)
	}
	out = append(out, f.Type.String())

	switch f.Type {
	case IndexFieldTag:
		if f.TagSeparator != "" {
			out = append(out, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			out = append(out, "CASESENSITIVE")
		}
	case IndexFieldVector:
		return append(out, f.vectorArgs()...)
	}

	if f.Sortable {
		out = append(out, "SORTABLE")
	}
	return out
}

func (f *IndexField) vectorArgs() []string {
	algo := f.VectorAlgo
	if algo == "" {
		algo = VectorHNSW
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}
	if algo == VectorHNSW && f.VectorM > 0 {
		attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
	}
	if algo == VectorHNSW && f.VectorEFConstruct > 0 {
		attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
	}

	return append([]string{string(algo), strconv.Itoa(len(attrs))}, attrs...)
}

// IndexDefinition is an FT index over JSON documents.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Fields   []IndexField
}

// Validate checks the definition before it reaches the server.
func (idx *IndexDefinition) Validate() error {
	switch {
	case idx.Name == "":
		return errors.New("index name is required")
	case !IsValidIdentifier(idx.Name):
		return errors.New("index name contains invalid characters")
	case len(idx.Fields) == 0:
		return errors.New("at least one field is required")
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("field %d: name is required", i)
		}
		if strings.HasPrefix(f.Name, "$") && f.Alias == "" {
			return fmt.Errorf("json path %s requires an alias", f.Name)
		}
		attr := f.Attribute()
		if _, dup := seen[attr]; dup {
			return fmt.Errorf("duplicate field name: %s", attr)
		}
		seen[attr] = struct{}{}

		if f.Type == IndexFieldVector {
			if f.VectorDim <= 0 {
				return fmt.Errorf("vector field %s requires positive DIM", attr)
			}
			if f.Sortable {
				return fmt.Errorf("vector field %s cannot be SORTABLE", attr)
			}
		}
	}
	return nil
}

// Args renders the FT.CREATE arguments that follow the command name.
func (idx *IndexDefinition) Args() ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	out := []string{idx.Name, "ON", "JSON"}
	if len(idx.Prefixes) > 0 {
		out = append(out, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		out = append(out, idx.Prefixes...)
	}
	out = append(out, "SCHEMA")
	for i := range idx.Fields {
		out = append(out, idx.Fields[i].args()...)
	}
	return out, nil
}

// String renders the FT.CREATE command, or the validation error.
func (idx *IndexDefinition) String() string {
	args, err := idx.Args()
	if err != nil {
		return "invalid index: " + err.Error()
	}
	return "FT.CREATE " + strings.Join(args, " ")
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ':', r == '-':
		default:
			return false
		}
	}
	return true
}
