package options

import "slices"

// Union applies a delta to the base compile file and flattens the result.
//
// Compiler flags are emitted category by category in the fixed merge order:
// the base flags first, then the delta's additions (skipped when already
// present anywhere in the accumulated list), then the removals. Link
// additions append to all three scopes and removals are taken out of each.
// Applying the same delta twice yields the same result.
func Union(base *CompileSet, delta *Delta) ([]string, LinkFlags) {
	var flags []string
	for _, category := range CategoryOrder {
		flags = append(flags, base.Compile[category]...)
		cd, ok := delta.Compile[category]
		if !ok {
			continue
		}
		for _, flag := range cd.Add {
			if !slices.Contains(flags, flag) {
				flags = append(flags, flag)
			}
		}
		for _, flag := range cd.Del {
			flags = removeFirst(flags, flag)
		}
	}

	link := LinkFlags{
		Public: slices.Clone(base.Link.Public),
		Shared: slices.Clone(base.Link.Shared),
		Exe:    slices.Clone(base.Link.Exe),
	}
	for _, flag := range delta.LinkAdd {
		link.Public = appendUnique(link.Public, flag)
		link.Shared = appendUnique(link.Shared, flag)
		link.Exe = appendUnique(link.Exe, flag)
	}
	for _, flag := range delta.LinkDel {
		link.Public = removeFirst(link.Public, flag)
		link.Shared = removeFirst(link.Shared, flag)
		link.Exe = removeFirst(link.Exe, flag)
	}
	return flags, link
}

func removeFirst(list []string, item string) []string {
	if i := slices.Index(list, item); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}
