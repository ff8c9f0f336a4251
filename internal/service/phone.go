package service

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/rilmas/internal/apperror"
)

// phoneRule is the one phone check for both login and profile edits, so a
// profile can never hold a phone that login would refuse.
type phoneRule struct {
	validate *validator.Validate
	minLen   int
}

// newPhoneRule uses DefaultMinPhoneLength for a non-positive minLen.
func newPhoneRule(minLen int) phoneRule {
	if minLen <= 0 {
		minLen = DefaultMinPhoneLength
	}
	return phoneRule{validate: validator.New(), minLen: minLen}
}

// check expects an already trimmed phone.
func (p phoneRule) check(phone string) error {
	if err := p.validate.Var(phone, "required,min="+strconv.Itoa(p.minLen)); err != nil {
		return apperror.ValidationFailed("phone",
			fmt.Sprintf("phone must be at least %d characters", p.minLen))
	}
	return nil
}
