package model

import "time"

// Entity is the capability every stored record exposes to the generic service layer.
// T is the concrete pointer type, so Clone can return a value of the same type.
type Entity[T any] interface {
	EntityID() int64
	MarkCreated(at time.Time)
	MarkUpdated(at time.Time)
	Timestamps() (createdAt time.Time, updatedAt *time.Time)
	Clone() T
}

// Patch is a partial update applied onto a stored entity. Only the fields present on the
// patch are written; absent (nil) fields leave the target untouched.
type Patch[T any] interface {
	ApplyTo(target T)
}

// Base holds the server managed fields shared by all entities.
type Base struct {
	ID        int64      `bun:"id,pk,autoincrement" json:"id"`
	CreatedAt time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt *time.Time `bun:"updated_at" json:"updatedAt,omitempty"`
}

// EntityID returns the storage assigned identifier.
func (t *Base) EntityID() int64 {
	return t.ID
}

// MarkCreated resets the server managed fields for a record about to be inserted.
func (t *Base) MarkCreated(at time.Time) {
	t.ID = 0
	t.CreatedAt = at
	t.UpdatedAt = nil
}

// MarkUpdated stamps the last modification time.
func (t *Base) MarkUpdated(at time.Time) {
	t.UpdatedAt = &at
}

// Timestamps returns the creation and last update times.
func (t *Base) Timestamps() (time.Time, *time.Time) {
	return t.CreatedAt, t.UpdatedAt
}

func (t Base) clone() Base {
	out := t
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		out.UpdatedAt = &u
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
