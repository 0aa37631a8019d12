package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/samcharles93/fsha/internal/archive"
	"github.com/samcharles93/fsha/pkg/fsha"
	"github.com/samcharles93/fsha/pkg/resbin"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

// writeFailure maps decoder and lookup errors to a status.
func writeFailure(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err.Error())
	case errors.Is(err, ErrArchiveNotFound), errors.Is(err, ErrModelNotFound):
		return writeNotFound(c, err.Error())
	case errors.Is(err, fsha.ErrProgramIndex):
		return writeError(c, http.StatusNotFound, "not_found_error", err.Error(), "index", "")
	case errors.Is(err, fsha.ErrKeyOutOfRange), errors.Is(err, fsha.ErrKeyTable):
		return writeError(c, http.StatusUnprocessableEntity, "archive_error", err.Error(), "", "corrupt_key_table")
	case errors.Is(err, fsha.ErrNoEmbeddedContainer):
		return writeError(c, http.StatusNotFound, "not_found_error", err.Error(), "", "no_embedded_container")
	case errors.Is(err, archive.ErrEmpty), errors.Is(err, fsha.ErrSignature), errors.Is(err, fsha.ErrUnknownPlatform):
		return writeError(c, http.StatusUnsupportedMediaType, "invalid_request_error", err.Error(), "", "not_a_shader_archive")
	}
	var de *resbin.DecodeError
	if errors.As(err, &de) {
		return writeError(c, http.StatusUnprocessableEntity, "archive_error", err.Error(), "", "decode_failed")
	}
	return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func parseIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, newInvalidRequest(fmt.Sprintf("invalid program index %q", raw))
	}
	return i, nil
}
