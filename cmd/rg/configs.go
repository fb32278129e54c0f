package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/ragged-format/go-ragged/form"
)

type formFormat string

const (
	formatJSON formFormat = "json"
	formatYAML formFormat = "yaml"
)

func parseFormFormat(v string) (formFormat, error) {
	switch v {
	case "json", "j":
		return formatJSON, nil
	case "yaml", "y":
		return formatYAML, nil
	}
	return "", fmt.Errorf("unknown form format %q", v)
}

type MainConfig struct {
	J bool `cli:"name=j aliases=json desc='do form i/o in json'"`
	Y bool `cli:"name=y aliases=yaml desc='do form i/o in yaml'"`

	Color bool `cli:"name=color desc='dump with color'"`

	InFormat, OutFormat *formFormat

	Out      string
	CloseOut func() error

	Main *cli.Command
}

func (cfg *MainConfig) fmtFunc(fps ...**formFormat) cli.FuncOpt {
	return cli.FuncOpt(func(_ *cli.Context, v string) (any, error) {
		f, err := parseFormFormat(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
		}
		for _, fp := range fps {
			*fp = &f
		}
		return f, nil
	})
}

// inFormat picks the format for reading path: an explicit -I wins, then
// -j/-y, then the file extension.
func (cfg *MainConfig) inFormat(path string) formFormat {
	if cfg.InFormat != nil {
		return *cfg.InFormat
	}
	switch {
	case cfg.Y:
		return formatYAML
	case cfg.J:
		return formatJSON
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	}
	return formatJSON
}

func (cfg *MainConfig) outFormat() formFormat {
	if cfg.OutFormat != nil {
		return *cfg.OutFormat
	}
	if cfg.Y {
		return formatYAML
	}
	return formatJSON
}

func readForm(cfg *MainConfig, path string) (form.Form, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if cfg.inFormat(path) == formatYAML {
		return form.FromYAML(raw)
	}
	return form.FromJSON(raw)
}

func writeForm(cfg *MainConfig, w io.Writer, f form.Form) error {
	var out []byte
	var err error
	if cfg.outFormat() == formatYAML {
		out, err = form.ToYAML(f)
	} else {
		out, err = form.ToJSONIndent(f)
	}
	if err != nil {
		return err
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	_, err = w.Write(out)
	return err
}

type DescribeConfig struct {
	*MainConfig

	Describe *cli.Command
}

type DumpConfig struct {
	*MainConfig
	Type   bool `cli:"name=t desc='print the type line first'"`
	Values int  `cli:"name=n desc='max values shown per buffer'"`

	Dump *cli.Command
}

type ConvertConfig struct {
	*MainConfig

	Convert *cli.Command
}

type DiffConfig struct {
	*MainConfig

	Diff *cli.Command
}

type FormConfig struct {
	*MainConfig
	Form *cli.Command
}

type FormPatchConfig struct {
	*MainConfig
	PatchFile string `cli:"name=p aliases=patch desc='JSON patch file'"`

	Patch *cli.Command
}

type PackConfig struct {
	*MainConfig
	Zstd bool `cli:"name=z aliases=zstd desc='compress buffers with zstd'"`

	Pack *cli.Command
}

type ServeConfig struct {
	*MainConfig
	Addr string `cli:"name=addr desc='TCP listen address default localhost:7099'"`

	Serve *cli.Command
}
