package validation

import (
	"net/url"
	"strings"
)

// ValidateURL checks that a picture or image link is an absolute http(s)
// URL. Empty values pass; callers decide whether the field is required.
func ValidateURL(field, value string) error {
	if value == "" {
		return nil
	}

	u, err := url.Parse(value)
	switch {
	case err != nil:
		return invalidURL(field, "invalid URL format")
	case u.Scheme == "":
		return invalidURL(field, "URL must include a scheme (http:// or https://)")
	case !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https"):
		return invalidURL(field, "URL scheme must be http or https")
	case u.Host == "":
		return invalidURL(field, "URL must include a host")
	}
	return nil
}

func invalidURL(field, reason string) Error {
	return Error{Field: field, Message: "Invalid " + field + ": " + reason}
}
