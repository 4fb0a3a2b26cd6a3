package models

import (
	"errors"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validator exposes the shared validator so transports report field errors
// with the same rules.
func Validator() *validator.Validate { return validate }

// ApplyDefaults fills the builder defaults of a new widget.
func ApplyDefaults(w Widget) error {
	if err := defaults.Set(w); err != nil {
		return fmt.Errorf("widget defaults: %w", err)
	}
	return nil
}

// ValidateWidget checks a widget's fields against its variant's rules.
func ValidateWidget(w Widget) error {
	if w == nil {
		return fmt.Errorf("widget is nil")
	}
	if w.Base().Type != w.Kind() {
		return fmt.Errorf("widget type %q does not match %q", w.Base().Type, w.Kind())
	}
	return validate.Struct(w)
}

// ErrDuplicateWidgetID reports two widgets of one list sharing an id.
var ErrDuplicateWidgetID = errors.New("duplicate widget id")

// ValidateWidgets validates every widget of a list, stopping at the first
// failure. Non-empty ids must be unique; empty ones are assigned later.
func ValidateWidgets(ws []Widget) error {
	seen := make(map[string]struct{}, len(ws))
	for i, w := range ws {
		if err := ValidateWidget(w); err != nil {
			return fmt.Errorf("widget %d: %w", i, err)
		}
		id := w.Base().ID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("widget %d: %w: %q", i, ErrDuplicateWidgetID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func ValidatePatch(p WidgetPatch) error {
	return validate.Struct(p)
}
