package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/ragged-format/go-ragged/dirstore"
)

func pack(cfg *PackConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Pack.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: pack takes a store directory and a destination", cli.ErrUsage)
	}
	c, err := dirstore.Load(args[0])
	if err != nil {
		return err
	}
	p, err := c.ToPacked()
	if err != nil {
		return err
	}
	var opts []dirstore.Option
	if cfg.Zstd {
		opts = append(opts, dirstore.WithZstd())
	}
	if err := dirstore.Write(args[1], p, opts...); err != nil {
		return err
	}
	fmt.Fprintf(cc.Out, "packed %s -> %s\n", args[0], args[1])
	return nil
}
