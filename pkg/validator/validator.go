package validator

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

var (
	// TokenPattern is the single shape accepted for emailed verification tokens.
	TokenPattern = regexp.MustCompile(`^[A-Za-z0-9]{16}$`)

	studentIDPattern      = regexp.MustCompile(`^[0-9AB]+$`)
	organizationIDPattern = regexp.MustCompile(`^C\d{5}$`)
	personNamePattern     = regexp.MustCompile(`^[A-Za-z\p{Hiragana}\p{Katakana}\p{Han}ー]+$`)
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		if err.Param != "" {
			parts[i] = err.Field + " failed on " + err.Tag + "=" + err.Param
		} else {
			parts[i] = err.Field + " failed on " + err.Tag
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, ValidationError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}

	return err
}

// IsVerificationToken reports whether token has the emailed token shape.
func IsVerificationToken(token string) bool {
	return TokenPattern.MatchString(token)
}

// IsOrganizationID reports whether id looks like a circle organization id.
func IsOrganizationID(id string) bool {
	return organizationIDPattern.MatchString(id)
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "" {
				return fld.Name
			}

			comma := strings.Index(name, ",")
			if comma != -1 {
				name = name[:comma]
			}

			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("verification_token", patternRule(TokenPattern))
		_ = validate.RegisterValidation("student_id", patternRule(studentIDPattern))
		_ = validate.RegisterValidation("organization_id", patternRule(organizationIDPattern))
		_ = validate.RegisterValidation("person_name", patternRule(personNamePattern))
	})
	return validate
}

func patternRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(strings.TrimSpace(fl.Field().String()))
	}
}
