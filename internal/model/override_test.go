package model

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

// The override tables must stay free of relations to the catalog: migration
// would otherwise emit a foreign key on feature_slug and the store would start
// rejecting overrides for slugs the catalog does not know.
func TestOverrideModels_NoCatalogRelation(t *testing.T) {
	cache := &sync.Map{}
	for _, m := range []interface{}{&UserFeature{}, &TeamFeature{}} {
		s, err := schema.Parse(m, cache, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("schema parse failed: %v", err)
		}
		if n := len(s.Relationships.Relations); n != 0 {
			t.Errorf("%s declares %d relation(s); override tables must not reference the catalog", s.Name, n)
		}
	}
}

func TestOverrideModels_CompositePrimaryKey(t *testing.T) {
	cache := &sync.Map{}
	for _, m := range []interface{}{&UserFeature{}, &TeamFeature{}} {
		s, err := schema.Parse(m, cache, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("schema parse failed: %v", err)
		}
		if len(s.PrimaryFields) != 2 {
			t.Errorf("%s: expected a composite (subject, feature_slug) primary key, got %d field(s)", s.Name, len(s.PrimaryFields))
		}
	}
}
