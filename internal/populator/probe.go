package populator

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"crashloader/internal/dataset"
	"crashloader/internal/objectstore"
)

// ProbeResult describes how one source object's header binds to its
// dataset manifest.
type ProbeResult struct {
	Dataset string   `json:"dataset"`
	Object  string   `json:"object"`
	Header  []string `json:"header,omitempty"`
	Bound   int      `json:"bound"`
	Missing []string `json:"missing,omitempty"`
	// Extra lists header columns no manifest column reads. They are staged
	// and then ignored by the merge.
	Extra []string `json:"extra,omitempty"`
	Error string   `json:"error,omitempty"`
}

// OK reports whether the object can be loaded.
func (r ProbeResult) OK() bool { return r.Error == "" }

// Probe samples the header of every source's object without touching the
// database. Per-source failures are recorded in the result; only context
// cancellation aborts the probe.
func Probe(ctx context.Context, store objectstore.Store, sources []Source) ([]ProbeResult, error) {
	out := make([]ProbeResult, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, probeOne(ctx, store, src))
	}
	return out, nil
}

func probeOne(ctx context.Context, store objectstore.Store, src Source) ProbeResult {
	res := ProbeResult{Dataset: src.Dataset, Object: src.From.String()}
	ds, err := dataset.Lookup(src.Dataset)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	header, err := readHeader(ctx, store, src.From)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Header = dataset.NormalizeHeader(header)

	b, err := dataset.Bind(ds, header)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Bound = len(b.Sources)
	res.Missing = b.Missing

	used := make(map[string]struct{}, len(b.Sources))
	for _, s := range b.Sources {
		used[s] = struct{}{}
	}
	for _, h := range b.Header {
		if _, ok := used[h]; !ok {
			res.Extra = append(res.Extra, h)
		}
	}
	return res
}

// Headers returns the raw normalized headers of successful results keyed by
// dataset, in the form Plan accepts.
func Headers(results []ProbeResult) map[string][]string {
	out := make(map[string][]string, len(results))
	for _, r := range results {
		if r.OK() {
			out[r.Dataset] = r.Header
		}
	}
	return out
}

// WriteProbe prints results as an aligned table.
func WriteProbe(w io.Writer, results []ProbeResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tOBJECT\tBOUND\tMISSING\tEXTRA\tERROR")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.Dataset, r.Object, r.Bound, len(r.Missing), len(r.Extra), r.Error)
	}
	return tw.Flush()
}
