package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classroom/core"
)

var (
	tierTag  = "tier"
	tierText = "must be one of member, teacher, admin or creator"
)

// InitValidators registers the course validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(tierTag, tierValidation)
	core.RegisterCustomTranslation(validate, translator, tierTag, tierText)
}

func tierValidation(fl validator.FieldLevel) bool {
	switch tier := fl.Field().Interface().(type) {
	case Tier:
		return tier.IsValid()
	case string:
		return Tier(tier).IsValid()
	}
	return false
}
