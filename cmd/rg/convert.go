package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
)

func convert(cfg *ConvertConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Convert.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: convert takes form files", cli.ErrUsage)
	}
	for _, arg := range args {
		f, err := readForm(cfg.MainConfig, arg)
		if err != nil {
			return fmt.Errorf("reading %s: %w", arg, err)
		}
		if err := writeForm(cfg.MainConfig, cc.Out, f); err != nil {
			return err
		}
	}
	return nil
}
