package validate

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. Custom tags are registered in init
// before the first call to Struct.
var v = validator.New()

func init() {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("pcn", validatePCN)
	_ = v.RegisterValidation("sex", validateSex)
}

// validatePCN accepts a PhilSys card number with exactly 16 digits, ignoring
// separators such as spaces and dashes.
func validatePCN(fl validator.FieldLevel) bool {
	n := 0
	for _, r := range fl.Field().String() {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n == 16
}

func validateSex(fl validator.FieldLevel) bool {
	switch strings.ToLower(strings.TrimSpace(fl.Field().String())) {
	case "male", "m", "female", "f":
		return true
	}
	return false
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
