package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Jahawk44/Sun-Research-Tree/internal/tree"
)

// Wire structs use pointers so that a missing field is distinguishable from
// a zero value. imageData is the only optional field.
type wireDocument struct {
	Nodes       []wireNode       `json:"nodes" yaml:"nodes" validate:"required,dive"`
	Connections []wireConnection `json:"connections" yaml:"connections" validate:"required,dive"`
}

type wireNode struct {
	ID          *int64   `json:"id" yaml:"id" validate:"required"`
	X           *float64 `json:"x" yaml:"x" validate:"required"`
	Y           *float64 `json:"y" yaml:"y" validate:"required"`
	Title       *string  `json:"title" yaml:"title" validate:"required"`
	Description *string  `json:"description" yaml:"description" validate:"required"`
	ImageData   *string  `json:"imageData" yaml:"imageData"`
	Unlocked    *bool    `json:"unlocked" yaml:"unlocked" validate:"required"`
}

type wireConnection struct {
	FromID *int64 `json:"fromId" yaml:"fromId" validate:"required"`
	ToID   *int64 `json:"toId" yaml:"toId" validate:"required"`
}

// Output structs always carry every field.
type outDocument struct {
	Nodes       []outNode       `json:"nodes" yaml:"nodes"`
	Connections []outConnection `json:"connections" yaml:"connections"`
}

type outNode struct {
	ID          int64   `json:"id" yaml:"id"`
	X           float64 `json:"x" yaml:"x"`
	Y           float64 `json:"y" yaml:"y"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	ImageData   *string `json:"imageData" yaml:"imageData"`
	Unlocked    bool    `json:"unlocked" yaml:"unlocked"`
}

type outConnection struct {
	FromID int64 `json:"fromId" yaml:"fromId"`
	ToID   int64 `json:"toId" yaml:"toId"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Marshal encodes doc as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(toWire(doc), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

// Unmarshal decodes the JSON wire form. Unknown fields are ignored. Syntax
// errors, type mismatches and missing fields fail with MALFORMED_DOCUMENT.
func Unmarshal(data []byte) (Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return Document{}, tree.NewMalformedDocument("%s", describeJSONError(err))
	}
	return fromWire(&w)
}

// MarshalYAML encodes doc as YAML with the same field names as JSON.
func MarshalYAML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(toWire(doc)); err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes the YAML form. Unlike Unmarshal, unknown fields are
// rejected.
func UnmarshalYAML(data []byte) (Document, error) {
	var w wireDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, tree.NewMalformedDocument("empty document")
		}
		return Document{}, tree.NewMalformedDocument("%v", err)
	}
	return fromWire(&w)
}

func describeJSONError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Sprintf("invalid JSON at offset %d: %v", syntaxErr.Offset, syntaxErr)
	}
	return err.Error()
}

func fromWire(w *wireDocument) (Document, error) {
	if err := validate.Struct(w); err != nil {
		return Document{}, tree.NewMalformedDocument("%s", describeValidation(err))
	}

	doc := Document{
		Nodes:       make([]NodeRecord, 0, len(w.Nodes)),
		Connections: make([]ConnectionRecord, 0, len(w.Connections)),
	}
	for _, n := range w.Nodes {
		doc.Nodes = append(doc.Nodes, NodeRecord{
			ID:          *n.ID,
			X:           *n.X,
			Y:           *n.Y,
			Title:       *n.Title,
			Description: *n.Description,
			ImageData:   n.ImageData,
			Unlocked:    *n.Unlocked,
		})
	}
	for _, c := range w.Connections {
		doc.Connections = append(doc.Connections, ConnectionRecord{
			FromID: *c.FromID,
			ToID:   *c.ToID,
		})
	}
	return doc, nil
}

func toWire(doc Document) outDocument {
	out := outDocument{
		Nodes:       make([]outNode, 0, len(doc.Nodes)),
		Connections: make([]outConnection, 0, len(doc.Connections)),
	}
	for _, n := range doc.Nodes {
		out.Nodes = append(out.Nodes, outNode{
			ID:          n.ID,
			X:           n.X,
			Y:           n.Y,
			Title:       n.Title,
			Description: n.Description,
			ImageData:   n.ImageData,
			Unlocked:    n.Unlocked,
		})
	}
	for _, c := range doc.Connections {
		out.Connections = append(out.Connections, outConnection{
			FromID: c.FromID,
			ToID:   c.ToID,
		})
	}
	return out
}

// describeValidation renders validator errors as "nodes[0].unlocked is
// required; ...".
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace starts with the root struct name.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if field == "" {
			field = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
