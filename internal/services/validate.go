package services

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"khata/internal/core"
)

// Permissive phone shape: optional leading +, then digits with the usual
// separators. Anything stricter rejects real numbers people type in.
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\-\s().]*$`)

// newValidate builds the shared validator with translated messages and the
// domain enum checks registered as custom tags.
func newValidate() (*validator.Validate, ut.Translator) {
	v := validator.New()

	eng := en.New()
	uni := ut.New(eng, eng)
	trans, found := uni.GetTranslator("en")
	if !found {
		log.Fatal("translator not found")
	}
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		log.Fatal(err)
	}

	// Report struct fields under their lowerCamel form names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return lowerCamel(fld.Name)
	})

	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "contacttype", func(fl validator.FieldLevel) bool {
		return core.ContactType(fl.Field().String()).Valid()
	})
	mustRegister(v, "transactiontype", func(fl validator.FieldLevel) bool {
		return core.TransactionType(fl.Field().String()).Valid()
	})

	mustTranslate(v, trans, "phone", "{0} must be a valid phone number")
	mustTranslate(v, trans, "contacttype", "{0} must be either Customer or Supplier")
	mustTranslate(v, trans, "transactiontype", "{0} must be either Received or Given")

	return v, trans
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		log.Fatal(err)
	}
}

func mustTranslate(v *validator.Validate, trans ut.Translator, tag, message string) {
	err := v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(tag, fe.Field())
			if err != nil {
				return fmt.Sprintf("%s is invalid", fe.Field())
			}
			return t
		})
	if err != nil {
		log.Fatal(err)
	}
}

// asValidationError converts validator output into the domain's field-level
// error. Non-validator errors pass through unchanged.
func asValidationError(err error, trans ut.Translator) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for field, msg := range verrs.Translate(trans) {
		// Translated keys arrive as Struct.field; keep the field part.
		if i := strings.LastIndex(field, "."); i >= 0 {
			field = field[i+1:]
		}
		fields[field] = msg
	}
	return &core.ValidationError{Fields: fields}
}

func lowerCamel(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
