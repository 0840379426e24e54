package token

import "strings"

// ExtractBearer parses an "Authorization: Bearer <token>" header value.
// It returns false when the scheme is not Bearer or the token segment is
// absent. An empty header is simply an anonymous caller, not an error.
func ExtractBearer(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}
