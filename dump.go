package recipestore

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

// DumpCollection writes every category and its records to w in display order.
func DumpCollection(w io.Writer, c Collection) {
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
	for _, name := range c.CategoryNames() {
		fmt.Fprintf(w, "%s (%d)\n", name, len(c[name]))
		for _, r := range c[name] {
			cfg.Fdump(w, r)
		}
	}
}
