package manifest

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	cueCtx     *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() {
	cueCtx = cuecontext.New()
	v := cueCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		schemaErr = fmt.Errorf("compiling manifest schema: %w", err)
		return
	}
	schemaDef = v.LookupPath(cue.ParsePath("#Manifest"))
	if err := schemaDef.Err(); err != nil {
		schemaErr = fmt.Errorf("manifest schema: %w", err)
	}
}

// Validate checks the manifest against the embedded CUE schema. Defaults
// must already be applied; every field is required to be concrete.
func (m *Manifest) Validate() error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}

	v := cueCtx.Encode(m)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := schemaDef.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}
