package match

import "github.com/acmatch/acmatch/internal/term"

// Try runs Match to completion and recovers a *PreconditionError panic into
// a plain Go error, for callers above the core (cmd/acmatch, internal/rpc)
// that want a single (results, error) return instead of
// handling the lazy iter.Seq and panic convention directly.
func Try(subjects []term.Expression, pattern term.Expression, subst term.Substitution) (results []term.Substitution, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*PreconditionError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()
	for s := range Match(subjects, pattern, subst) {
		results = append(results, s)
	}
	return results, nil
}
