package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	oerrors "github.com/opmodel/hal/internal/errors"
)

//go:embed schema/config.schema.json
var configSchemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("config.schema.json", string(configSchemaJSON))
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks a raw config document against the embedded
// schema. An empty document is valid.
func ValidateDocument(location string, data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return invalidConfig(location, "", "config file is not valid YAML: "+err.Error())
	}
	if doc == nil {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return invalidConfig(location, "", "config file must be a mapping with string keys")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("decoding config document: %w", err)
	}

	schema, err := configSchema()
	if err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		leaves := schemaLeaves(ve)
		field := strings.TrimPrefix(strings.ReplaceAll(leaves[0].InstanceLocation, "/", "."), ".")
		messages := make([]string, 0, len(leaves))
		for _, l := range leaves {
			loc := l.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			messages = append(messages, loc+": "+l.Message)
		}
		return invalidConfig(location, field, strings.Join(messages, "; "))
	}
	return nil
}

// schemaLeaves returns the innermost causes of a validation error, sorted
// by instance location.
func schemaLeaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, schemaLeaves(c)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].InstanceLocation < out[j].InstanceLocation })
	return out
}

func invalidConfig(location, field, message string) error {
	return &oerrors.DetailError{
		Type:     "invalid config",
		Message:  message,
		Location: location,
		Field:    field,
		Hint:     "Compare with the defaults written by: hal config init --force",
		Cause:    oerrors.ErrValidation,
	}
}
