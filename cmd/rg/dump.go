package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/ragged-format/go-ragged/dirstore"
	"github.com/ragged-format/go-ragged/dump"
)

func dumpTree(cfg *DumpConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Dump.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: dump takes one store directory", cli.ErrUsage)
	}
	c, err := dirstore.Load(args[0])
	if err != nil {
		return err
	}
	if cfg.Type {
		fmt.Fprintln(cc.Out, dump.TypeString(c))
	}
	var opts []dump.Option
	if cfg.Color {
		opts = append(opts, dump.WithColors(dump.NewColors()))
	}
	if cfg.Values > 0 {
		opts = append(opts, dump.WithMaxValues(cfg.Values))
	}
	return dump.Fprint(cc.Out, c, opts...)
}
