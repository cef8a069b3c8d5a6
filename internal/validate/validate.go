// Package validate checks incoming JSON documents against JSON schemas and sanitises free text
package validate

import (
	"encoding/json"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Error lists the reasons a document has been rejected for
type Error struct {
	Details []string
}

// Error implements the error interface
func (e *Error) Error() string {
	return strings.Join(e.Details, ", ")
}

// Schema is a compiled JSON schema
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile compiles a JSON schema
func Compile(source string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		return nil, errors.Wrap(err, "Compile: illegal schema")
	}
	return &Schema{s}, nil
}

// MustCompile compiles a JSON schema and panics if it is invalid
func MustCompile(source string) *Schema {
	s, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return s
}

// Check validates the raw JSON document
func (s *Schema) Check(doc []byte) error {
	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &Error{Details: []string{fmt.Sprintf("no valid JSON document: %v", err)}}
	}
	if res.Valid() {
		return nil
	}
	e := &Error{}
	for _, d := range res.Errors() {
		e.Details = append(e.Details, d.String())
	}
	return e
}

// Decode validates the raw JSON document and unmarshals it into v
func (s *Schema) Decode(doc []byte, v interface{}) error {
	if err := s.Check(doc); err != nil {
		return err
	}
	if err := json.Unmarshal(doc, v); err != nil {
		return &Error{Details: []string{err.Error()}}
	}
	return nil
}

// DecodeClean works like Decode, but sanitises all strings inside v afterwards. Not to be used for passwords.
func (s *Schema) DecodeClean(doc []byte, v interface{}) error {
	if err := s.Decode(doc, v); err != nil {
		return err
	}
	SanitizeStrings(v)
	return nil
}

var strict = bluemonday.StrictPolicy()

// Sanitize removes all markup from a text. Entities are decoded again unless that would bring back markup.
func Sanitize(s string) string {
	clean := strict.Sanitize(s)
	if plain := html.UnescapeString(clean); !strings.ContainsAny(plain, "<>") {
		clean = plain
	}
	return strings.TrimSpace(clean)
}

// SanitizeStrings sanitises all exported string fields (and string slices) of the struct v points to - recursively
func SanitizeStrings(v interface{}) {
	sanitizeValue(reflect.ValueOf(v))
}

func sanitizeValue(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			sanitizeValue(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				sanitizeValue(v.Field(i))
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			sanitizeValue(v.Index(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(Sanitize(v.String()))
		}
	}
}
