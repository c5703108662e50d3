package main

import (
	"encoding/json"
	"reflect"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout. Nil slices
// are written as [] so scripts can always iterate the result.
func writeJSON(cmd *cobra.Command, v any) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.IsNil() {
		v = []any{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
