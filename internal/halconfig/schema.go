package halconfig

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"sigs.k8s.io/yaml"
)

//go:embed schema.cue
var schemaCUE []byte

var (
	schemaMu   sync.Mutex
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
		if v.Err() != nil {
			schemaErr = fmt.Errorf("compiling halconfig schema: %w", v.Err())
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Halconfig"))
	})
	return schemaCtx, schemaDef, schemaErr
}

// SchemaError lists the structural violations of a halconfig document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "halconfig does not match schema:\n  " + strings.Join(e.Violations, "\n  ")
}

// CheckSchema validates raw YAML against the embedded structural schema.
func CheckSchema(data []byte) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("converting halconfig to JSON: %w", err)
	}
	if strings.TrimSpace(string(jsonData)) == "null" {
		return nil
	}

	doc := ctx.CompileBytes(jsonData, cue.Filename("halconfig"))
	if doc.Err() != nil {
		return fmt.Errorf("reading halconfig: %w", doc.Err())
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		var violations []string
		for _, e := range cueerrors.Errors(err) {
			violations = append(violations, e.Error())
		}
		return &SchemaError{Violations: violations}
	}
	return nil
}
