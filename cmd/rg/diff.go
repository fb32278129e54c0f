package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/ragged-format/go-ragged/formdiff"
)

func diffForms(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff takes two form files", cli.ErrUsage)
	}
	a, err := readForm(cfg.MainConfig, args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	b, err := readForm(cfg.MainConfig, args[1])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[1], err)
	}
	out, err := formdiff.Diff(a, b)
	if err != nil {
		return err
	}
	if out == "" {
		return nil
	}
	fmt.Fprint(cc.Out, out)
	return cli.ExitCodeErr(1)
}
