package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var schemaNames = map[string]string{
	TypeHello:   "hello.schema.json",
	TypeWelcome: "welcome.schema.json",
	TypeAct:     "act.schema.json",
	TypeObs:     "obs.schema.json",
}

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	for _, name := range schemaNames {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("%s: %w", name, err)
			return
		}
	}
	out := make(map[string]*jsonschema.Schema, len(schemaNames))
	for typ, name := range schemaNames {
		s, err := c.Compile(name)
		if err != nil {
			schemaErr = fmt.Errorf("%s: %w", name, err)
			return
		}
		out[typ] = s
	}
	schemas = out
}

// SchemaJSON returns the raw embedded schema for a message type.
func SchemaJSON(msgType string) ([]byte, error) {
	name, ok := schemaNames[msgType]
	if !ok {
		return nil, fmt.Errorf("no schema for %q", msgType)
	}
	return schemaFS.ReadFile("schemas/" + name)
}

// Validate checks a raw JSON message against the schema of msgType.
func Validate(msgType string, raw []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s, ok := schemas[msgType]
	if !ok {
		return fmt.Errorf("no schema for %q", msgType)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}
