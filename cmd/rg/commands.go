package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts, []*cli.Opt{
		&cli.Opt{
			Name:        "o",
			Description: "output file (default stdout)",
			Type:        cli.NamedFuncOpt(cfg.outOpt, "(filepath)"),
		},
		&cli.Opt{
			Name:        "I",
			Aliases:     []string{"ifmt"},
			Description: "form input format: json/j, yaml/y",
			Type:        cli.NamedFuncOpt(cfg.fmtFunc(&cfg.InFormat), "(format)"),
		}, &cli.Opt{
			Name:        "O",
			Aliases:     []string{"ofmt"},
			Description: "form output format: json/j, yaml/y",
			Type:        cli.NamedFuncOpt(cfg.fmtFunc(&cfg.OutFormat), "(format)"),
		}}...)

	return cli.NewCommandAt(&cfg.Main, "rg").
		WithSynopsis("rg [opts] command [opts]").
		WithDescription("rg is a tool for working with ragged array stores.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return rgMain(cfg, cc, args)
		}).
		WithSubs(
			DescribeCommand(cfg),
			DumpCommand(cfg),
			ConvertCommand(cfg),
			DiffCommand(cfg),
			FormCommand(cfg),
			PackCommand(cfg),
			ServeCommand(cfg))
}

func DescribeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DescribeConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Describe, "describe").
		WithAliases("d", "de").
		WithSynopsis("describe <storedir>").
		WithDescription("show a store's form, length, type, and buffer sizes").
		WithRun(func(cc *cli.Context, args []string) error {
			return describe(cfg, cc, args)
		})
}

func DumpCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DumpConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Dump, "dump").
		WithSynopsis("dump [-t] [-n max] <storedir>").
		WithDescription("print a store's layout tree with buffer values").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return dumpTree(cfg, cc, args)
		})
}

func ConvertCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ConvertConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Convert, "convert").
		WithAliases("c", "co").
		WithSynopsis("convert [-O format] [formfiles]").
		WithDescription("convert form files between json and yaml").
		WithRun(func(cc *cli.Context, args []string) error {
			return convert(cfg, cc, args)
		})
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("di").
		WithSynopsis("diff <formfile> <formfile>").
		WithDescription("diff two form files line by line").
		WithRun(func(cc *cli.Context, args []string) error {
			return diffForms(cfg, cc, args)
		})
}

func FormCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &FormConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Form, "form").
		WithSynopsis("form <subcommand>").
		WithDescription("form file commands").
		WithSubs(FormPatchCommand(mainCfg))
}

func FormPatchCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &FormPatchConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Patch, "patch").
		WithAliases("p").
		WithSynopsis("patch -p <patchfile> <formfile>").
		WithDescription("apply a JSON patch to a form file").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return formPatch(cfg, cc, args)
		})
}

func PackCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PackConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Pack, "pack").
		WithSynopsis("pack [-z] <storedir> <destdir>").
		WithDescription("rewrite a store with slack and indirection dropped").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return pack(cfg, cc, args)
		})
}

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg, Addr: "localhost:7099"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithSynopsis("serve [-addr <addr>] <rootdir>").
		WithDescription("run the bufd dataset server").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
}
