// Package tui holds the terminal prompts used by interactive commands.
package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrCanceled is returned when the user aborts a prompt.
var ErrCanceled = errors.New("canceled")

func run(field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCanceled
	}
	return err
}

// Required rejects blank input.
func Required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("this field is required")
	}
	return nil
}

// Confirm shows a yes/no confirmation prompt.
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := run(huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&result))
	if err != nil {
		return defaultValue, err
	}
	return result, nil
}

// ConfirmDangerous shows a confirmation prompt for destructive actions.
func ConfirmDangerous(message string) (bool, error) {
	var result bool
	err := run(huh.NewConfirm().
		Title(message).
		Description("This action cannot be undone.").
		Affirmative("Yes, I'm sure").
		Negative("Cancel").
		Value(&result))
	if err != nil {
		return false, err
	}
	return result, nil
}

// Input shows a text prompt prefilled with value. validate may be nil.
func Input(title, value string, validate func(string) error) (string, error) {
	input := huh.NewInput().Title(title).Value(&value)
	if validate != nil {
		input = input.Validate(validate)
	}
	err := run(input)
	return value, err
}

// Password shows a masked prompt.
func Password(title string) (string, error) {
	var result string
	err := run(huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Validate(Required).
		Value(&result))
	return result, err
}

// SelectOption represents an option in a select prompt.
type SelectOption struct {
	Value string
	Label string
}

// Select shows a single-select prompt with current preselected.
func Select(title, current string, options []SelectOption) (string, error) {
	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt.Label, opt.Value).Selected(opt.Value == current)
	}

	result := current
	err := run(huh.NewSelect[string]().
		Title(title).
		Options(huhOptions...).
		Value(&result))
	return result, err
}

// FormField is one text input of a Form.
type FormField struct {
	Key      string
	Title    string
	Required bool
	Default  string
	// Error is shown under the title, for values the caller rejected.
	Error string
}

// Form shows a group of text inputs and returns key -> value.
func Form(title string, fields []FormField) (map[string]string, error) {
	values := make([]*string, len(fields))
	huhFields := make([]huh.Field, len(fields))
	for i, f := range fields {
		value := f.Default
		values[i] = &value

		input := huh.NewInput().Title(f.Title).Value(values[i])
		if f.Error != "" {
			input = input.Description(f.Error)
		}
		if f.Required {
			input = input.Validate(Required)
		}
		huhFields[i] = input
	}

	err := huh.NewForm(huh.NewGroup(huhFields...).Title(title)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return nil, ErrCanceled
	}
	if err != nil {
		return nil, err
	}

	results := make(map[string]string, len(fields))
	for i, f := range fields {
		results[f.Key] = *values[i]
	}
	return results, nil
}

// Note shows an informational note.
func Note(title, body string) error {
	return run(huh.NewNote().Title(title).Description(body))
}
