package attest

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/types"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("recordtype", func(fl validator.FieldLevel) bool { //nolint:errcheck // tag name is a constant
		return block.RecordType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("metadata", func(fl validator.FieldLevel) bool { //nolint:errcheck // tag name is a constant
		md, ok := fl.Field().Interface().(types.Metadata)
		return ok && md.Validate() == nil
	})
	return v
}

// validateRequest maps validator failures onto ValidationError.
func (l *Ledger) validateRequest(req AppendRequest) error {
	err := l.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var multi MultiError
	for _, fe := range verrs {
		multi.Add(ValidationError{Field: fe.Field(), Message: describe(fe)})
	}
	if len(multi.Errors) == 1 {
		return multi.First()
	}
	return multi
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "recordtype":
		return fmt.Sprintf("%q is not a valid record type", fe.Value())
	case "metadata":
		if md, ok := fe.Value().(types.Metadata); ok {
			if err := md.Validate(); err != nil {
				return err.Error()
			}
		}
		return "is invalid"
	default:
		return "failed " + fe.Tag()
	}
}
