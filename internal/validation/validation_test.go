package validation

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@x.com", true},
		{"maria.perez@tienda.co", true},
		{"", false},
		{"sin-arroba", false},
		{"dos espacios@x.com", false},
		{"a@sin-punto", false},
	}

	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestRegistrationCollectsPerFieldErrors(t *testing.T) {
	errs := Registration("", "bad", "123")
	if len(errs) != 3 {
		t.Fatalf("got %d field errors, want 3: %v", len(errs), errs)
	}

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, f := range []string{"name", "email", "password"} {
		if !fields[f] {
			t.Errorf("missing field error for %q", f)
		}
	}

	if errs := Registration("Ana", "ana@x.com", "secreta"); len(errs) != 0 {
		t.Fatalf("valid input produced errors: %v", errs)
	}
}

func TestFoldStripsDiacritics(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"tránsito", "transito"},
		{"Señorial", "Senorial"},
		{"María Pérez", "Maria Perez"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
