package domain

import (
	"testing"
)

// FuzzParseScope checks that scope parsing never panics and that every
// accepted scope round-trips through its canonical key.
func FuzzParseScope(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000", "", "")
	f.Add("", "550e8400-e29b-41d4-a716-446655440000", "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	f.Add("", "550e8400-e29b-41d4-a716-446655440000", "")
	f.Add("x", "y", "z")
	f.Add("", "", "")

	f.Fuzz(func(t *testing.T, ssg, dept, position string) {
		scope, err := ParseScope(ssg, dept, position)
		if err != nil {
			return
		}
		if verr := scope.Validate(); verr != nil {
			t.Fatalf("parsed scope failed validation: %v", verr)
		}
		roundTrip, err := ParseScopeKey(scope.Key())
		if err != nil {
			t.Fatalf("valid scope failed key round-trip: %v", err)
		}
		if roundTrip != scope {
			t.Fatal("key round-trip changed scope")
		}
	})
}
