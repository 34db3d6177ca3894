package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() {
	schemas = map[string]*jsonschema.Schema{}
	for _, name := range []string{"join", "key", "state"} {
		file := name + ".schema.json"
		raw, err := schemaFS.ReadFile("schemas/" + file)
		if err != nil {
			schemasErr = err
			return
		}
		s, err := jsonschema.CompileString(file, string(raw))
		if err != nil {
			schemasErr = fmt.Errorf("compile %s: %w", file, err)
			return
		}
		schemas[name] = s
	}
}

// Schema returns the compiled schema by name ("join", "key", "state").
func Schema(name string) (*jsonschema.Schema, error) {
	schemasOnce.Do(loadSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	return s, nil
}

// Validate checks a raw JSON document against the named schema.
func Validate(name string, raw []byte) error {
	s, err := Schema(name)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}

// DecodeCommand validates a client command and returns it as *JoinCmd or *KeyCmd.
func DecodeCommand(raw []byte) (any, error) {
	base, err := DecodeBase(raw)
	if err != nil {
		return nil, err
	}
	switch base.Cmd {
	case CmdJoin:
		if err := Validate("join", raw); err != nil {
			return nil, err
		}
		var c JoinCmd
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case CmdKey:
		if err := Validate("key", raw); err != nil {
			return nil, err
		}
		var c KeyCmd
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("unknown cmd %q", base.Cmd)
	}
}
