package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

const schemaSource = `
#Config: {
	engine?: {
		version?:       string
		maxIterations?: int & >0
	}
	components?: {
		dir?:       string
		url?:       =~"^https?://"
		cacheSize?: int & >0
		s3?: {
			endpoint?:  string
			region?:    string
			accessKey?: string
			secretKey?: string
			bucket?:    string
			prefix?:    string
			useSSL?:    bool
		}
	}
	log?: {
		level?:  "debug" | "info" | "warn" | "error"
		format?: "auto" | "text" | "json"
	}
	globals?: {...}
}
`

// Validate checks decoded configuration data against the schema. Unknown
// keys are rejected.
func Validate(raw map[string]any) error {
	if raw == nil {
		return nil
	}
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	value := def.Unify(ctx.Encode(raw))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid %s: %s", FileName, cueerrors.Details(err, nil))
	}
	return nil
}
