package content

import (
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

// CatalogRow is a flattened metadata projection of a record
type CatalogRow struct {
	id      string
	columns map[string]jsonapi.Attribute
	order   []string
}

func (r *CatalogRow) ID() string { return r.id }

func (r *CatalogRow) Technology() jsonapi.Technology { return jsonapi.TechnologyCatalog }

func (r *CatalogRow) Attribute(name string) (jsonapi.Attribute, bool) {
	attr, ok := r.columns[name]
	return attr, ok
}

// Columns returns the metadata column names of the row
func (r *CatalogRow) Columns() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
