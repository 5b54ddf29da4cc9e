package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	jsoniter "github.com/json-iterator/go"
)

const maxBodySize = 1 << 20

var (
	errInvalidBody          = errors.New("Invalid request body")
	errMissingFields        = errors.New("Missing required fields")
	errStreamingUnsupported = errors.New("streaming unsupported")
	errRefreshFailed        = errors.New("Failed to fetch products")
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = newValidator()
)

// newValidator adds notblank, which rejects whitespace-only strings that
// required lets through.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// decodeBody reads a JSON body into dst. A body that is not a single JSON
// value of the right shape yields errInvalidBody.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// decodeAndValidate decodes the body and runs the struct's validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := decodeBody(w, r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && !isPresenceTag(fieldErrs[0].Tag()) {
			return fmt.Errorf("Invalid %s", strings.ToLower(fieldErrs[0].Field()))
		}
		return errMissingFields
	}
	return nil
}

func isPresenceTag(tag string) bool {
	return tag == "required" || tag == "notblank"
}
