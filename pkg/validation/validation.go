package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	appErrors "github.com/AltamashPatel/edu-schedule-wiz/pkg/errors"
)

var academicYearPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

var (
	once     sync.Once
	validate *validator.Validate
	trans    ut.Translator
)

// New returns the shared validator configured with JSON field names, English
// translations and the custom academic_year rule.
func New() *validator.Validate {
	once.Do(setup)
	return validate
}

func setup() {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
		return academicYearPattern.MatchString(fl.Field().String())
	})

	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	_ = v.RegisterTranslation("academic_year", trans,
		func(t ut.Translator) error {
			return t.Add("academic_year", "{0} must look like 2024-2025", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("academic_year", fe.Field())
			return msg
		},
	)
	validate = v
}

// Translate maps validation failures to field -> message. Errors that are not
// validation errors land under "detail".
func Translate(err error) map[string]string {
	once.Do(setup)
	fields := make(map[string]string)

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Error converts err into a VALIDATION_ERROR carrying translated field details.
func Error(err error) *appErrors.Error {
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, ""), Translate(err))
}
