package export

import "embed"

// SchemaFS holds the JSON schema of the dump.
//
//go:embed schema/dump.schema.json
var SchemaFS embed.FS

// SchemaPath is the path of the dump schema inside SchemaFS.
const SchemaPath = "schema/dump.schema.json"
