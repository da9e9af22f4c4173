package testutil

import "testing"

// Given, When, and Then name the phases of a scenario test, like the
// submit-then-amend lifecycle, as prefixed subtests. The phases share the
// parent's fixtures and run in order.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
