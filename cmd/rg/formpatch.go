package main

import (
	"fmt"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/ragged-format/go-ragged/form"
)

func formPatch(cfg *FormPatchConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Patch.Parse(cc, args)
	if err != nil {
		return err
	}
	if cfg.PatchFile == "" {
		return fmt.Errorf("%w: -p <patchfile> is required", cli.ErrUsage)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: patch takes one form file", cli.ErrUsage)
	}
	patch, err := os.ReadFile(cfg.PatchFile)
	if err != nil {
		return err
	}
	f, err := readForm(cfg.MainConfig, args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	out, err := form.ApplyPatch(f, patch)
	if err != nil {
		return err
	}
	return writeForm(cfg.MainConfig, cc.Out, out)
}
