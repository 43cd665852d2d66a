package models

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	e "github.com/lumenblog/lumen/errors"
)

// Slugs may hold letters in any script, digits, underscores and hyphens
var validSlug = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)

func validateLength(
	function string,
	field string,
	value string,
	min int,
	max int,
) (int, error) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))

	if n < min {
		if min == 1 {
			return http.StatusBadRequest, e.Newf(
				0, function, e.InvalidContent, "%s is a required field", field,
			)
		}
		return http.StatusBadRequest, e.Newf(
			0, function, e.OutOfRange,
			"%s must be at least %d characters", field, min,
		)
	}

	if max > 0 && n > max {
		return http.StatusBadRequest, e.Newf(
			0, function, e.OutOfRange,
			"%s cannot be longer than %d characters", field, max,
		)
	}

	return http.StatusOK, nil
}

func validateSlug(function string, slug string, max int) (int, error) {
	status, err := validateLength(function, "slug", slug, 1, max)
	if err != nil {
		return status, err
	}

	if !validSlug.MatchString(slug) {
		return http.StatusBadRequest, e.Newf(
			0, function, e.InvalidContent,
			"slug (%s) may only contain letters, digits, '-' and '_'", slug,
		)
	}

	return http.StatusOK, nil
}

func validateEnum(
	function string,
	field string,
	value string,
	valid map[string]bool,
) (int, error) {
	if !valid[value] {
		return http.StatusBadRequest, e.Newf(
			0, function, e.InvalidContent,
			"%s (%s) is not a valid value", field, value,
		)
	}

	return http.StatusOK, nil
}
