package exambank

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/courseapp/courseapp/core"
)

var (
	correctIndexTag  = "correctindex"
	correctIndexText = "correctIndex must point at one of the options"
)

// InitValidators registers the test validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newQuestionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, correctIndexTag, correctIndexText)
}

// newQuestionStructValidation checks that the correct option exists.
func newQuestionStructValidation(sl validator.StructLevel) {
	nq, ok := sl.Current().Interface().(NewQuestion)
	if !ok || len(nq.Options) == 0 {
		return
	}
	if nq.CorrectIndex < 0 || nq.CorrectIndex >= len(nq.Options) {
		sl.ReportError(nq.CorrectIndex, "correctIndex", "CorrectIndex", correctIndexTag, fmt.Sprint(len(nq.Options)))
	}
}
