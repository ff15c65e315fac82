package httpapi

import (
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Nicknames with a long run of ideographs look like real names, which the
// app forbids.
const maxHanRunes = 10

func looksLikeRealName(s string) bool {
	han := 0
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	return han > maxHanRunes
}

func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("nickname", func(fl validator.FieldLevel) bool {
		return !looksLikeRealName(fl.Field().String())
	})
}
