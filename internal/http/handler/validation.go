package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var errMalformedBody = errors.New("malformed request body")

// decodeJSON decodes and validates a request body. An empty body decodes to
// the zero value so optional payloads stay optional.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body != nil && r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return errMalformedBody
		}
	}
	return validate.Struct(dst)
}
