package booking

import (
	"regexp"
	"strings"
)

// Правила ФИО пациента, в порядке проверки:
// непустое, без цифр, только кириллица/латиница/дефисы, 2–4 слова,
// каждое слово от двух символов, сокращённые инициалы не допускаются.
var (
	reDigits      = regexp.MustCompile(`[0-9]`)
	reBadChars    = regexp.MustCompile(`[^а-яёА-ЯЁa-zA-Z\s-]`)
	reBareInitial = regexp.MustCompile(`^[А-ЯЁA-Z]$`)
)

// ValidatePatientName проверяет ФИО до того, как оно попадёт в логику
// бронирования. Возвращает *ValidationError с именем нарушенного правила.
func ValidatePatientName(value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return newValidationError("required", "введите ФИО пациента")
	}
	if reDigits.MatchString(trimmed) {
		return newValidationError("digits", "ФИО не должно содержать цифры")
	}
	if reBadChars.MatchString(trimmed) {
		return newValidationError("charset", "ФИО не должно содержать спецсимволы и точки")
	}

	parts := strings.Fields(trimmed)
	if len(parts) < 2 {
		return newValidationError("one_word", "укажите минимум фамилию и имя")
	}
	if len(parts) > 4 {
		return newValidationError("too_many_words", "слишком много слов в ФИО")
	}
	for _, part := range parts {
		if reBareInitial.MatchString(part) {
			return newValidationError("bare_initial", "укажите полное имя вместо инициалов")
		}
		if len([]rune(part)) < 2 {
			return newValidationError("short_part", "каждая часть ФИО должна содержать минимум 2 символа")
		}
	}
	return nil
}
