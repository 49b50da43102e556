package model

import "github.com/uptrace/bun"

var (
	_ Entity[*Author] = (*Author)(nil)
	_ Patch[*Author]  = AuthorPatch{}
)

// Author is the stored shape of an author.
type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a" json:"-" msgpack:"-"`
	Base

	Name string  `bun:"name,notnull" json:"name"`
	Bio  *string `bun:"bio" json:"bio,omitempty"`
}

// Clone returns a deep copy safe to mutate.
func (a *Author) Clone() *Author {
	out := *a
	out.Base = a.Base.clone()
	out.Bio = cloneString(a.Bio)
	return &out
}

// AuthorSet is the create/replace shape of an author.
type AuthorSet struct {
	Name string  `json:"name"`
	Bio  *string `json:"bio"`
}

// Entity builds a new, unsaved Author.
func (s AuthorSet) Entity() *Author {
	return &Author{Name: s.Name, Bio: cloneString(s.Bio)}
}

// Patch converts the set shape into a patch: Name is always present, Bio only when given.
func (s AuthorSet) Patch() AuthorPatch {
	name := s.Name
	return AuthorPatch{Name: &name, Bio: cloneString(s.Bio)}
}

// AuthorPatch is the partial update shape of an author.
type AuthorPatch struct {
	Name *string `json:"name"`
	Bio  *string `json:"bio"`
}

// ApplyTo writes every present field onto target.
func (p AuthorPatch) ApplyTo(target *Author) {
	if p.Name != nil {
		target.Name = *p.Name
	}
	if p.Bio != nil {
		target.Bio = cloneString(p.Bio)
	}
}
