// Package taxonomy resolves free-text cell-type annotations to a fixed,
// ordered set of canonical labels.
//
// Resolution is a strict cascade: exact match on a canonical name, then the
// alias table, then an ordered list of heuristic rules, and finally
// pass-through of the trimmed input. All comparisons happen on folded text
// (see Fold). The tables are immutable once built and safe to share between
// goroutines.
//
// Example:
//
//	n, err := taxonomy.NewReferenceNormalizer(nil)
//	if err != nil {
//	    return err
//	}
//	n.Normalize("ICM_TE Branch") // "ICM/TE branch"
package taxonomy
