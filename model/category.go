package model

import "github.com/uptrace/bun"

var (
	_ Entity[*Category] = (*Category)(nil)
	_ Patch[*Category]  = CategoryPatch{}
)

// Category is the stored shape of a category.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c" json:"-" msgpack:"-"`
	Base

	Name        string  `bun:"name,notnull" json:"name"`
	Description *string `bun:"description" json:"description,omitempty"`
}

// Clone returns a deep copy safe to mutate.
func (c *Category) Clone() *Category {
	out := *c
	out.Base = c.Base.clone()
	out.Description = cloneString(c.Description)
	return &out
}

// CategorySet is the create/replace shape of a category.
type CategorySet struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Entity builds a new, unsaved Category.
func (s CategorySet) Entity() *Category {
	return &Category{Name: s.Name, Description: cloneString(s.Description)}
}

// Patch converts the set shape into a patch.
func (s CategorySet) Patch() CategoryPatch {
	name := s.Name
	return CategoryPatch{Name: &name, Description: cloneString(s.Description)}
}

// CategoryPatch is the partial update shape of a category.
type CategoryPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ApplyTo writes every present field onto target.
func (p CategoryPatch) ApplyTo(target *Category) {
	if p.Name != nil {
		target.Name = *p.Name
	}
	if p.Description != nil {
		target.Description = cloneString(p.Description)
	}
}
