// Package validate parses and checks library query parameters. Errors name
// the parameter they refer to.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Trewaters/soar-sub011/internal/model"
)

// ParamError is a rejected query parameter.
type ParamError struct {
	Param   string
	Message string
}

func (e ParamError) Error() string { return fmt.Sprintf("%s %s", e.Param, e.Message) }

// userIDRx accepts identity-provider subjects, UUIDs and emails.
var userIDRx = regexp.MustCompile(`^[A-Za-z0-9_\-|.@:]{1,128}$`)

const maxQueryLen = 100

// Type parses the required library type.
func Type(v string) (model.LibraryType, error) {
	if v == "" {
		return "", ParamError{"type", "is required"}
	}
	t, err := model.ParseLibraryType(v)
	if err != nil {
		return "", ParamError{"type", "must be one of asanas, series, sequences, all"}
	}
	return t, nil
}

// Limit parses an optional positive limit, returning def when absent.
// Clamping to the service maximum happens downstream.
func Limit(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, ParamError{"limit", "must be a positive integer"}
	}
	return n, nil
}

// Page parses an optional 1-based page. Absent and 0 both mean the first page.
func Page(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, ParamError{"page", "must be a positive integer"}
	}
	return n, nil
}

// UserID checks an optional owner or viewer id.
func UserID(param, v string) error {
	if v == "" {
		return nil
	}
	if !userIDRx.MatchString(v) {
		return ParamError{param, fmt.Sprintf("must match %s", userIDRx.String())}
	}
	return nil
}

// Query trims a free-text search query and bounds its length.
func Query(v string) (string, error) {
	v = strings.TrimSpace(v)
	if len(v) > maxQueryLen {
		return "", ParamError{"q", fmt.Sprintf("exceeds %d characters", maxQueryLen)}
	}
	return v, nil
}

// PageRequest assembles a model.PageRequest from raw query values.
func PageRequest(get func(string) string, defaultLimit int) (model.PageRequest, error) {
	t, err := Type(get("type"))
	if err != nil {
		return model.PageRequest{}, err
	}
	limit, err := Limit(get("limit"), defaultLimit)
	if err != nil {
		return model.PageRequest{}, err
	}
	// A cursor overrides page, so page is not parsed at all.
	cur := get("cursor")
	var page int
	if cur == "" {
		if page, err = Page(get("page")); err != nil {
			return model.PageRequest{}, err
		}
	}
	userID := get("userId")
	if err := UserID("userId", userID); err != nil {
		return model.PageRequest{}, err
	}
	return model.PageRequest{Type: t, UserID: userID, Limit: limit, Page: page, Cursor: cur}, nil
}
