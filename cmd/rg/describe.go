package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/scott-cotton/cli"

	"github.com/ragged-format/go-ragged/buffers"
	"github.com/ragged-format/go-ragged/dirstore"
	"github.com/ragged-format/go-ragged/dump"
)

func describe(cfg *DescribeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Describe.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: describe takes one store directory", cli.ErrUsage)
	}
	st, err := dirstore.Open(args[0])
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintf(cc.Out, "form: %s\n", st.Form().Class())
	fmt.Fprintf(cc.Out, "length: %d\n", st.Length())
	fmt.Fprintf(cc.Out, "type: %s\n", storeType(st))
	fmt.Fprintln(cc.Out, "buffers:")
	var total int64
	keys := st.Keys()
	for _, k := range keys {
		n, _ := st.BufferSize(k)
		total += n
		fmt.Fprintf(cc.Out, "  %-24s %s\n", k, humanize.IBytes(uint64(n)))
	}
	fmt.Fprintf(cc.Out, "total: %s in %d buffers\n", humanize.IBytes(uint64(total)), len(keys))
	return nil
}

// storeType renders the store's type from the form alone, the row count
// patched in from the manifest. No buffer files are read.
func storeType(st *dirstore.Store) string {
	tr, _, err := buffers.TypeTracer(st.Form())
	if err != nil {
		return "(unavailable)"
	}
	ts := dump.TypeString(tr)
	if rest, ok := strings.CutPrefix(ts, "?? * "); ok {
		return fmt.Sprintf("%d * %s", st.Length(), rest)
	}
	return ts
}
