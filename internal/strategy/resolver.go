package strategy

import "strings"

// Requested unifies the single strategy selection and the strategy list into the
// effective request: the single selection first, then the list, blanks and repeats
// dropped. Both absent yields an empty request.
func Requested(single string, list []string) []string {
	out := make([]string, 0, len(list)+1)
	seen := make(map[string]bool, len(list)+1)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	add(single)
	for _, name := range list {
		add(name)
	}
	return out
}

// Resolve maps requested names to discovered descriptors in request order. For each
// name the first descriptor with that name wins; names nobody provides are skipped.
func Resolve(requested []string, discovered []Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(requested))
	for _, name := range requested {
		for _, d := range discovered {
			if d.Failed() || d.Name != name {
				continue
			}
			out = append(out, d)
			break
		}
	}
	return out
}

// Unresolved returns the requested names Resolve could not match.
func Unresolved(requested []string, resolved []Descriptor) []string {
	found := make(map[string]bool, len(resolved))
	for _, d := range resolved {
		found[d.Name] = true
	}
	var missing []string
	for _, name := range requested {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
