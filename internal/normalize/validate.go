package normalize

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// IsValidEmail reports whether the normalized address is well-formed.
func IsValidEmail(s string) bool {
	e := Email(s)
	if e == "" {
		return false
	}
	return validatorInstance().Var(e, "email") == nil
}

// IsValidPhone reports whether the normalized number has 6 to 15 digits.
func IsValidPhone(s string) bool {
	p := Phone(s)
	n := 0
	for _, r := range p {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= 6 && n <= 15
}
