package replay

import "fmt"

// Verify checks that the second pass stored nothing new and that both
// passes account for every generated event.
func Verify(generated int, first, second Stats) error {
	if n := first.Successful + first.Duplicate + first.Failed; n != generated {
		return fmt.Errorf("%w: first pass accounted for %d of %d events", ErrNotIdempotent, n, generated)
	}
	if n := second.Successful + second.Duplicate + second.Failed; n != generated {
		return fmt.Errorf("%w: second pass accounted for %d of %d events", ErrNotIdempotent, n, generated)
	}
	if second.Successful != 0 {
		return fmt.Errorf("%w: second pass created %d events", ErrNotIdempotent, second.Successful)
	}
	if want := first.Successful + first.Duplicate; second.Duplicate != want {
		return fmt.Errorf("%w: second pass saw %d duplicates, want %d", ErrNotIdempotent, second.Duplicate, want)
	}
	return nil
}
