package main

import (
	"encoding/json"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/skdltmxn/pdbview/pdb"
)

func writeJSON(w io.Writer, p *pdb.ParsedPDB) error {
	return json.NewEncoder(w).Encode(p)
}

// writeMsgpack encodes the same structure as writeJSON, keyed by the json
// field names.
func writeMsgpack(w io.Writer, p *pdb.ParsedPDB) error {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	enc.SetSortMapKeys(true)
	return enc.Encode(p)
}
