package model

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MinTextLength is the minimum rune length of optional free text (Bio, Description).
const MinTextLength = 5

var nonBlank = regexp.MustCompile(`\S`)

func requiredText(name string) []validation.Rule {
	return []validation.Rule{
		validation.Required.Error(name + " is required"),
		validation.Match(nonBlank).Error(name + " is required"),
	}
}

func optionalText(name string) []validation.Rule {
	return []validation.Rule{
		validation.NilOrNotEmpty.Error(name + " cannot be empty when specified"),
		validation.Match(nonBlank).Error(name + " cannot be blank when specified"),
	}
}

func freeText(name string) []validation.Rule {
	return []validation.Rule{
		validation.NilOrNotEmpty.Error(name + " must have at least 5 characters when specified"),
		validation.RuneLength(MinTextLength, 0).Error(name + " must have at least 5 characters when specified"),
	}
}

// Validate checks the required and length rules of an author create/replace request.
func (s AuthorSet) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, requiredText("Name")...),
		validation.Field(&s.Bio, freeText("Bio")...),
	)
}

// Validate checks the fields present on an author patch.
func (p AuthorPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, optionalText("Name")...),
		validation.Field(&p.Bio, freeText("Bio")...),
	)
}

// Validate checks the required and length rules of a category create/replace request.
func (s CategorySet) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, requiredText("Name")...),
		validation.Field(&s.Description, freeText("Description")...),
	)
}

// Validate checks the fields present on a category patch.
func (p CategoryPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, optionalText("Name")...),
		validation.Field(&p.Description, freeText("Description")...),
	)
}

// Validate checks the required fields of a book create/replace request. Whether AuthorID
// and CategoryID resolve is checked by the catalog layer.
func (s BookSet) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, requiredText("Title")...),
		validation.Field(&s.ISBN, optionalText("ISBN")...),
		validation.Field(&s.PublishedAt, validation.Required.Error("PublishedAt is required")),
		validation.Field(&s.AuthorID,
			validation.Required.Error("AuthorId is required"),
			validation.Min(1).Error("AuthorId must be a positive id"),
		),
		validation.Field(&s.CategoryID, validation.Min(1).Error("CategoryId must be a positive id")),
	)
}

// Validate checks the fields present on a book patch.
func (p BookPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, optionalText("Title")...),
		validation.Field(&p.ISBN, optionalText("ISBN")...),
		validation.Field(&p.PublishedAt, validation.NilOrNotEmpty.Error("PublishedAt cannot be empty when specified")),
		validation.Field(&p.AuthorID, validation.Min(1).Error("AuthorId must be a positive id")),
		validation.Field(&p.CategoryID, validation.Min(1).Error("CategoryId must be a positive id")),
	)
}
