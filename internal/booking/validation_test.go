package booking

import "testing"

func TestValidatePatientName_Valid(t *testing.T) {
	valid := []string{
		"Иванов Иван",
		"Иванов Иван Иванович",
		"Петрова-Сидорова Анна",
		"Ivanov Ivan",
		"Салтыков-Щедрин Михаил Евграфович",
	}
	for _, name := range valid {
		if err := ValidatePatientName(name); err != nil {
			t.Errorf("ValidatePatientName(%q) = %v, want nil", name, err)
		}
	}
}

func TestValidatePatientName_Invalid(t *testing.T) {
	cases := []struct {
		name string
		rule string
	}{
		{"", "required"},
		{"   ", "required"},
		{"Ivanov123", "digits"},
		{"Иванов И.", "charset"},
		{"Иванов@Иван", "charset"},
		{"Ivanov", "one_word"},
		{"Иванов Иван Иванович Петрович Сидорович", "too_many_words"},
		{"Иванов я Иванович", "short_part"},
		{"А Иванов", "bare_initial"},
	}
	for _, tc := range cases {
		err := ValidatePatientName(tc.name)
		ve, ok := AsValidationError(err)
		if !ok {
			t.Errorf("ValidatePatientName(%q) = %v, want validation error", tc.name, err)
			continue
		}
		if ve.Rule != tc.rule {
			t.Errorf("ValidatePatientName(%q): rule = %q, want %q", tc.name, ve.Rule, tc.rule)
		}
	}
}
