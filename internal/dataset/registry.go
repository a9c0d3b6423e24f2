package dataset

import (
	"fmt"
	"sort"
)

// registry lists the built-in datasets in load order: parents before the
// detail tables that reference them.
var registry = []Dataset{
	NYCCrashes(),
	CACrashes(),
	CAInjuredWitnessPassengers(),
	CAParties(),
}

func init() {
	seen := map[string]struct{}{}
	for _, d := range registry {
		if err := d.Validate(); err != nil {
			panic(err)
		}
		for _, id := range []string{d.Table, d.StagingTable} {
			if _, dup := seen[id]; dup {
				panic(fmt.Sprintf("dataset: table %s declared twice", id))
			}
			seen[id] = struct{}{}
		}
	}
}

// All returns every built-in dataset in load order.
func All() []Dataset {
	out := make([]Dataset, len(registry))
	copy(out, registry)
	return out
}

// Names returns the built-in dataset names in load order.
func Names() []string {
	out := make([]string, len(registry))
	for i, d := range registry {
		out[i] = d.Name
	}
	return out
}

// Lookup returns the dataset registered under name.
func Lookup(name string) (Dataset, error) {
	for _, d := range registry {
		if d.Name == name {
			return d, nil
		}
	}
	return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
}

// InLoadOrder sorts names by their registry position. Unknown names are an
// error; duplicates are kept once.
func InLoadOrder(names []string) ([]string, error) {
	pos := make(map[string]int, len(registry))
	for i, d := range registry {
		pos[d.Name] = i
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := pos[n]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, n)
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return pos[out[i]] < pos[out[j]] })
	return out, nil
}
