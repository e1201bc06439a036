package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validation limits for category and rule fields.
const (
	maxCategoryNameLen = 200
	maxRuleContentLen  = 5000
	maxRecordNoteLen   = 500
)

var validate = newValidator()

// newValidator registers the field aliases used in the input tags so the
// limits above are the only place the lengths are written down.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterAlias("category_name", fmt.Sprintf("required,max=%d", maxCategoryNameLen))
	v.RegisterAlias("rule_content", fmt.Sprintf("required,max=%d", maxRuleContentLen))
	v.RegisterAlias("record_note", fmt.Sprintf("max=%d", maxRecordNoteLen))
	return v
}

// categoryInput is the body of create-category and update-category-name.
// ParentID is ignored on rename.
type categoryInput struct {
	Name     string     `json:"name" validate:"category_name"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// ruleInput is the body of create-rule and update-rule. CategoryID is
// ignored on update.
type ruleInput struct {
	CategoryID uuid.UUID `json:"category_id"`
	Content    string    `json:"content" validate:"rule_content"`
}

// countInput is the optional body of follow and violate.
type countInput struct {
	Note string `json:"note" validate:"record_note"`
}

// moveInput is the body of move-category. Both new_parent_id and parent_id
// are accepted for the new parent; a missing parent moves the category to
// the top level.
type moveInput struct {
	NewParentID *uuid.UUID `json:"new_parent_id"`
	ParentID    *uuid.UUID `json:"parent_id"`
	SortOrder   int        `json:"sort_order" validate:"min=0"`
}

func (in moveInput) parent() *uuid.UUID {
	if in.NewParentID != nil {
		return in.NewParentID
	}
	return in.ParentID
}

// validateCategory trims and checks a category form and returns the first
// problem found, or "" if the input is acceptable.
func validateCategory(in *categoryInput) string {
	in.Name = strings.TrimSpace(in.Name)
	return describe(validate.Struct(in))
}

// validateRule trims and checks a rule form.
func validateRule(in *ruleInput) string {
	in.Content = strings.TrimSpace(in.Content)
	return describe(validate.Struct(in))
}

func validateCount(in *countInput) string {
	in.Note = strings.TrimSpace(in.Note)
	return describe(validate.Struct(in))
}

func validateMove(in *moveInput) string {
	return describe(validate.Struct(in))
}

// describe turns a validator error into a user-facing sentence.
func describe(err error) string {
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid input."
	}
	fe := verrs[0]
	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required.", fieldLabel(fe.Field()))
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters).", fieldLabel(fe.Field()), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s.", fieldLabel(fe.Field()), fe.Param())
	}
	return fmt.Sprintf("%s is invalid.", fieldLabel(fe.Field()))
}

func fieldLabel(field string) string {
	switch field {
	case "Name":
		return "Category name"
	case "Content":
		return "Rule content"
	case "SortOrder":
		return "Sort order"
	}
	return field
}
