package httputil

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ReadAndValidate decodes the body into dst and runs struct validation.
func ReadAndValidate(r *http.Request, dst any) error {
	if err := ReadJSON(r, dst); err != nil {
		return err
	}
	return ValidateStruct(dst)
}

// ValidateStruct validates v and flattens validator errors into one message
// naming the failing fields.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+" failed "+fe.Tag())
	}
	return errors.New("invalid request: " + strings.Join(parts, "; "))
}
