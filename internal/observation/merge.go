package observation

// mergeKey identifies an observation for deduplication. Only the fields of the
// applicable identity rule are set, kind keeps the two rules from colliding.
type mergeKey struct {
	kind           byte
	submissionID   string
	scientificName string
	locationID     string
	quantity       string
	observedAt     string
}

const (
	keyBySubmission byte = iota + 1
	keyByFallback
)

func submissionKey(o *Observation) mergeKey {
	return mergeKey{
		kind:           keyBySubmission,
		submissionID:   o.SubmissionID,
		scientificName: o.ScientificName,
	}
}

func fallbackKey(o *Observation) mergeKey {
	quantity := "\x00"
	if o.Quantity.Present() {
		quantity = o.Quantity.Raw()
	}
	return mergeKey{
		kind:           keyByFallback,
		scientificName: o.ScientificName,
		locationID:     o.LocationID,
		quantity:       quantity,
		observedAt:     o.ObservedAt,
	}
}

// Merge concatenates batches in argument order and removes duplicate sightings.
// The first occurrence wins and survivors keep their first-occurrence order.
//
// Two records with submission IDs are the same sighting when their
// (submission, scientific name) pairs match. When either side lacks a
// submission ID, (location, scientific name, quantity, observed at) decides.
func Merge(batches ...[]Observation) []Observation {
	total := 0
	for _, b := range batches {
		total += len(b)
	}

	out := make([]Observation, 0, total)
	bySubmission := make(map[mergeKey]struct{}, total)
	// fallback keys remember whether the record that claimed them had a submission ID
	byFallback := make(map[mergeKey]bool, total)

	for _, batch := range batches {
		for i := range batch {
			o := &batch[i]
			fk := fallbackKey(o)

			if o.SubmissionID != "" {
				sk := submissionKey(o)
				if _, dup := bySubmission[sk]; dup {
					continue
				}
				if hadSubmission, seen := byFallback[fk]; seen && !hadSubmission {
					continue
				}
				bySubmission[sk] = struct{}{}
				if _, seen := byFallback[fk]; !seen {
					byFallback[fk] = true
				}
			} else {
				if _, seen := byFallback[fk]; seen {
					continue
				}
				byFallback[fk] = false
			}

			out = append(out, *o)
		}
	}

	return out
}
