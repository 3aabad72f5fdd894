package detectors

import "golang.org/x/text/unicode/norm"

// normalize applies NFC normalization before any detector runs its
// pattern matching, so visually identical but differently-composed
// Unicode sequences (e.g. a citation span pasted from a PDF) don't
// silently evade a regex anchored to the composed form.
func normalize(text string) string {
	return norm.NFC.String(text)
}
