package service

import (
	"github.com/go-playground/validator/v10"
)

// validate is shared by every service; validator caches struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

func validateStruct(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return validationError(err)
	}
	return nil
}
