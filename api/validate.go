package api

import (
	"fmt"
	"regexp"
)

var identifierRegexp = regexp.MustCompile(`^[a-z0-9_]+$`)

//ValidateString returns an error if the given value is not within the parameters
func ValidateString(field, value string, max int) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", field)
	} else if len(value) > max {
		return fmt.Errorf("%s length (%d) was more than maximum allowed (%d)", field, len(value), max)
	}
	return nil
}

//ValidateIdentifier returns an error if value can't be used as part of an SQL identifier
func ValidateIdentifier(field, value string, max int) error {
	if err := ValidateString(field, value, max); err != nil {
		return err
	}
	if !identifierRegexp.MatchString(value) {
		return fmt.Errorf("%s (%s) may only contain lowercase letters, digits, and underscores", field, value)
	}
	return nil
}
