package schema

import (
	"bytes"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/beamlab/dms/dmserr"
)

// metaSchema is the JSON Schema every uploaded schema document must satisfy
// before typed decoding. Semantic rules (link targets, unit legality) are
// checked afterwards by Schema.Validate.
const metaSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "propertyNames": {"pattern": "^[A-Za-z][A-Za-z0-9_]*$"},
  "additionalProperties": {
    "type": "object",
    "propertyNames": {"pattern": "^[A-Za-z][A-Za-z0-9_]*$"},
    "additionalProperties": {
      "type": "object",
      "properties": {
        "dtype": {"enum": ["f", "i", "?", "str", "bytes", "object"]},
        "unit": {"type": "string"},
        "shape": {
          "type": "array",
          "items": {"type": "integer"},
          "maxItems": 5
        },
        "link": {"type": "string"}
      },
      "additionalProperties": false
    }
  }
}`

var compileMeta = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(metaSchema))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("dms://meta-schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("dms://meta-schema.json")
})

func validateMeta(raw []byte) error {
	meta, err := compileMeta()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return dmserr.Wrap(dmserr.KindSchemaError, err, "schema is not valid JSON")
	}
	if err := meta.Validate(inst); err != nil {
		return dmserr.Wrap(dmserr.KindSchemaError, err, "schema rejected by meta-schema")
	}
	return nil
}
