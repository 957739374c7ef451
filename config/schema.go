package config

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the JSON form of a job file.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	return r.Reflect(&Job{})
}
