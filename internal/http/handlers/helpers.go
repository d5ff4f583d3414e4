package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"claimflow/internal/common"
)

func decodeJSON(r *http.Request, dest any) error {
	if r.Body == nil {
		return common.NewError(common.CodeValidation, "request body is required", nil)
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewError(common.CodeValidation, "request body is required", err)
		}
		return common.NewError(common.CodeValidation, "invalid request body", err)
	}
	return nil
}

// idFromPath extracts the UUID path segment counting from the end of the
// path: 1 for /claims/{id}, 2 for /claims/{id}/hold.
func idFromPath(r *http.Request, fromEnd int) (common.UUID, error) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if fromEnd <= 0 || fromEnd > len(segments) {
		return "", common.NewError(common.CodeValidation, "invalid path", nil)
	}
	return common.ParseUUID(segments[len(segments)-fromEnd])
}

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "authentication required", nil)
}
