// Package entity defines the typed entities and relations that are laid out
// on a board.
//
// Entities are owned by an external collaborator (an API, a file, a
// database); this package only models what the layout engine needs from
// them: a stable ID and a set of directed, typed relations.
//
// # Relations
//
// Relations map a [RelationType] from a small closed set to an ordered list
// of target entity IDs. Duplicate targets within one type are independent
// edges. Relation types outside the closed set are ignored by [Edges].
//
// # Dangling Relations
//
// A relation whose target is not part of the loaded entity set is dangling.
// [Edges] drops dangling relations, so they contribute neither layout forces
// nor connectors.
package entity

import (
	"fmt"
	"slices"
	"time"

	"github.com/loreboard/loreboard/pkg/errors"
)

// RelationType is one of a fixed set of directed relation kinds.
type RelationType string

// Relation types.
const (
	RelationOrigin    RelationType = "ORIGIN"
	RelationFriend    RelationType = "FRIEND"
	RelationEnemy     RelationType = "ENEMY"
	RelationAffiliate RelationType = "AFFILIATE"
	RelationWields    RelationType = "WIELDS"
)

// RelationTypes lists every valid relation type in canonical order.
var RelationTypes = []RelationType{
	RelationOrigin,
	RelationFriend,
	RelationEnemy,
	RelationAffiliate,
	RelationWields,
}

var relationColors = map[RelationType]string{
	RelationOrigin:    "#38bdf8",
	RelationFriend:    "#4ade80",
	RelationEnemy:     "#f87171",
	RelationAffiliate: "#facc15",
	RelationWields:    "#a855f7",
}

// Valid reports whether t belongs to the closed relation set.
func (t RelationType) Valid() bool {
	_, ok := relationColors[t]
	return ok
}

// Color returns the display color of the relation type.
func (t RelationType) Color() string {
	if c, ok := relationColors[t]; ok {
		return c
	}
	return relationColors[RelationOrigin]
}

// ParseRelationType converts s to a RelationType, rejecting unknown types.
func ParseRelationType(s string) (RelationType, error) {
	t := RelationType(s)
	if !t.Valid() {
		return "", errors.New(errors.ErrCodeInvalidRelation, "unknown relation type %q", s)
	}
	return t, nil
}

// Kind is the domain category of an entity. It only affects presentation.
type Kind string

// Entity kinds.
const (
	KindCharacter    Kind = "CHARACTER"
	KindLocation     Kind = "LOCATION"
	KindItem         Kind = "ITEM"
	KindOrganization Kind = "ORGANIZATION"
	KindOther        Kind = "OTHER"
)

var kindColors = map[Kind]string{
	KindCharacter:    "#38bdf8",
	KindLocation:     "#4ade80",
	KindItem:         "#fbbf24",
	KindOrganization: "#a855f7",
	KindOther:        "#f97316",
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindColors[k]
	return ok
}

// Color returns the card color of the kind. Unknown kinds use the OTHER color.
func (k Kind) Color() string {
	if c, ok := kindColors[k]; ok {
		return c
	}
	return kindColors[KindOther]
}

// Relations maps each relation type to its ordered target IDs.
type Relations map[RelationType][]string

// Entity is a node on the board.
type Entity struct {
	ID         string            `json:"id" bson:"id" yaml:"id" toml:"id"`
	Name       string            `json:"name,omitempty" bson:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Kind       Kind              `json:"entity_type,omitempty" bson:"entity_type,omitempty" yaml:"entity_type,omitempty" toml:"entity_type,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty" yaml:"attributes,omitempty" toml:"attributes,omitempty"`
	Relations  Relations         `json:"relations,omitempty" bson:"relations,omitempty" yaml:"relations,omitempty" toml:"relations,omitempty"`
	CreatedAt  time.Time         `json:"created_at,omitzero" bson:"created_at,omitempty" yaml:"created_at,omitempty" toml:"created_at,omitempty"`
}

// DisplayName returns the name if set, otherwise the ID.
func (e Entity) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Targets returns the targets of relation type t in order.
func (e Entity) Targets(t RelationType) []string {
	return e.Relations[t]
}

// Relate appends target to the relations of type t.
func (e *Entity) Relate(t RelationType, target string) {
	if e.Relations == nil {
		e.Relations = Relations{}
	}
	e.Relations[t] = append(e.Relations[t], target)
}

// Validate checks that every entity has a non-empty, unique ID.
// Relation targets are not checked: dangling relations are tolerated.
func Validate(entities []Entity) error {
	seen := make(map[string]bool, len(entities))
	for i, e := range entities {
		if e.ID == "" {
			return errors.New(errors.ErrCodeInvalidEntity, "entity at index %d has an empty id", i)
		}
		if seen[e.ID] {
			return errors.New(errors.ErrCodeInvalidEntity, "duplicate entity id %q", e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// IDs returns the entity IDs in input order.
func IDs(entities []Entity) []string {
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	return ids
}

// NewestFirst returns a copy of entities ordered by descending CreatedAt.
// Entities with equal timestamps keep their input order.
func NewestFirst(entities []Entity) []Entity {
	out := slices.Clone(entities)
	slices.SortStableFunc(out, func(a, b Entity) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// Edge is a resolved directed relation between two loaded entities.
type Edge struct {
	Source string       `json:"source" bson:"source"`
	Target string       `json:"target" bson:"target"`
	Type   RelationType `json:"type" bson:"type"`
	// Occurrence counts earlier edges with the same source, type and
	// target. Duplicate targets are independent edges.
	Occurrence int `json:"occurrence,omitempty" bson:"occurrence,omitempty"`
}

// ID returns the connector identity "<source>:<TYPE>:<target>". Repeated
// edges get ":<occurrence>" appended, which cannot clash because entity
// IDs never contain ':'.
func (e Edge) ID() string {
	if e.Occurrence > 0 {
		return fmt.Sprintf("%s:%s:%s:%d", e.Source, e.Type, e.Target, e.Occurrence)
	}
	return fmt.Sprintf("%s:%s:%s", e.Source, e.Type, e.Target)
}

// Edges resolves the relations of entities into edges. Relations with an
// unknown type or a target outside the entity set are dropped. Edges are
// ordered by entity, then canonical relation type, then target order.
func Edges(entities []Entity) []Edge {
	present := make(map[string]bool, len(entities))
	for _, e := range entities {
		present[e.ID] = true
	}

	var edges []Edge
	for _, e := range entities {
		for _, t := range RelationTypes {
			seen := map[string]int{}
			for _, target := range e.Relations[t] {
				if !present[target] {
					continue
				}
				edges = append(edges, Edge{Source: e.ID, Target: target, Type: t, Occurrence: seen[target]})
				seen[target]++
			}
		}
	}
	return edges
}
