package dto

import (
	"html"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeStringRe   = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
	currencyCodeRe = regexp.MustCompile(`^[A-Za-z]{3}$`)
	digitsRe       = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]*$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
		_ = v.RegisterValidation("currency_code", validateCurrencyCode)
		_ = v.RegisterValidation("digits", validateDigits)
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// validateCurrencyCode accepts three ASCII letters in any case.
func validateCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodeRe.MatchString(fl.Field().String())
}

// validateDigits accepts a dialable number: digits with an optional
// leading plus and space, dash or parenthesis separators.
func validateDigits(fl validator.FieldLevel) bool {
	return digitsRe.MatchString(fl.Field().String())
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer. Slices of structs are
// walked. A `sanitize:"trim"` tag only trims; `sanitize:"-"` leaves the
// field untouched.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		mode := rt.Field(i).Tag.Get("sanitize")
		if mode == "-" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String(), mode))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String(), mode))
			}
		case reflect.Slice:
			for j := 0; j < f.Len(); j++ {
				item := f.Index(j)
				switch item.Kind() {
				case reflect.Struct:
					sanitizeFields(item)
				case reflect.String:
					item.SetString(sanitize(item.String(), mode))
				}
			}
		}
	}
}

func sanitize(s, mode string) string {
	s = strings.TrimSpace(s)
	if mode == "trim" {
		return s
	}
	return html.EscapeString(s)
}
