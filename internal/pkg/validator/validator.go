package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"invostock/internal/pkg/errors"
)

const (
	msgMissingFields = "Nedostaju obavezna polja"
	msgInvalidData   = "Neispravni podaci"
	msgInvalidBody   = "Neispravan format zahtjeva"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	// Money fields validate as numbers, so gt/gte/lte work on them.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Decode reads a JSON body into dst and validates it.
func Decode(r *http.Request, dst interface{}) error {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}
	return Struct(dst)
}

// DecodeJSON only parses the body; the service receiving dst validates it.
func DecodeJSON(r *http.Request, dst interface{}) error {
	defer io.Copy(io.Discard, r.Body)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, msgInvalidBody)
	}
	return nil
}

// Struct validates v and reports failures per JSON field name.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, msgInvalidData)
	}

	message := msgInvalidData
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		if fe.Tag() == "required" {
			message = msgMissingFields
		}
		details[fieldPath(fe)] = fieldMessage(fe)
	}
	return errors.Invalid(message).WithDetails(details)
}

// fieldPath drops the root struct name: "Input.items[0].name" -> "items[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "obavezno polje"
	case "email":
		return "neispravna e-mail adresa"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("potrebno je najmanje %s stavki", fe.Param())
		}
		return fmt.Sprintf("mora imati najmanje %s", fe.Param())
	case "max":
		return fmt.Sprintf("smije imati najviše %s", fe.Param())
	case "gt":
		return fmt.Sprintf("mora biti veće od %s", fe.Param())
	case "gte":
		return fmt.Sprintf("mora biti najmanje %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("dopuštene vrijednosti: %s", fe.Param())
	case "datetime":
		return "neispravan datum (GGGG-MM-DD)"
	case "len":
		return fmt.Sprintf("mora imati točno %s znakova", fe.Param())
	case "numeric":
		return "smije sadržavati samo znamenke"
	}
	return "neispravna vrijednost"
}
