package doc

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/networks.schema.json
var networksSchema string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("networks.schema.json", networksSchema)
	})
	return schema, schemaErr
}

// ValidateTop checks the top-level sections a networks document must carry.
// Entries inside the sections are checked by the loaders, which skip bad
// entries instead of failing.
func ValidateTop(n Node) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := s.Validate(Plain(n)); err != nil {
		return err
	}
	return nil
}
