package fields

// Intersect folds set intersection over descriptor identity across all sets. No sets
// yields nil; a single set is returned deduplicated and sorted. The result
// does not depend on argument order.
func Intersect(sets ...[]FieldDescriptor) []FieldDescriptor {
	if len(sets) == 0 {
		return nil
	}

	acc := dedupe(sets[0])
	for _, next := range sets[1:] {
		acc = intersect2(acc, next)
		if len(acc) == 0 {
			break
		}
	}

	Sort(acc)
	return acc
}

// intersect2 keeps Raw only when both sides agree on it (date vs date_nanos,
// keyword vs constant_keyword), so the raw type of the result never depends
// on fold order.
func intersect2(a, b []FieldDescriptor) []FieldDescriptor {
	inB := make(map[string]string, len(b))
	for _, d := range b {
		inB[d.Key()] = d.Raw
	}

	out := make([]FieldDescriptor, 0, len(a))
	for _, d := range a {
		raw, ok := inB[d.Key()]
		if !ok {
			continue
		}
		if raw != d.Raw {
			d.Raw = ""
		}
		out = append(out, d)
	}
	return out
}

func dedupe(ds []FieldDescriptor) []FieldDescriptor {
	seen := make(map[string]struct{}, len(ds))
	out := make([]FieldDescriptor, 0, len(ds))
	for _, d := range ds {
		if _, ok := seen[d.Key()]; ok {
			continue
		}
		seen[d.Key()] = struct{}{}
		out = append(out, d)
	}
	return out
}
