package signalhub

import _ "embed"

//go:embed internal/store/pgstore/schema.sql
var SchemaSQL []byte
