// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

// ImageFlags is exported: reflection skips FlagBinder detection on
// unexported embedded types.
type ImageFlags struct {
	Path string
}

func (b *ImageFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&b.Path, "image", "default.img", "container image")
}

func TestBindFlags(t *testing.T) {
	type params struct {
		ImageFlags
		JSONOutput
		Force      bool     `flag:"force,f" desc:"overwrite"`
		Blocks     int      `flag:"blocks" desc:"block count" default:"64"`
		Length     int64    `flag:"length" desc:"byte length"`
		Compress   string   `flag:"compression" desc:"codec" default:"zstd"`
		Recipients []string `flag:"recipient" desc:"age recipient"`
		Ignored    string
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags() error: %v", err)
	}
	if p.Blocks != 64 || p.Compress != "zstd" || p.Path != "default.img" {
		t.Errorf("defaults not applied: %+v", p)
	}

	err := flagSet.Parse([]string{
		"-f", "--json",
		"--blocks", "128",
		"--length", "4294967296",
		"--recipient", "age1a,with-comma", "--recipient", "age1b",
		"--image", "disk.img",
	})
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !p.Force || !p.OutputJSON || p.Blocks != 128 || p.Length != 1<<32 || p.Path != "disk.img" {
		t.Errorf("parsed params = %+v", p)
	}
	if len(p.Recipients) != 2 || p.Recipients[0] != "age1a,with-comma" {
		t.Errorf("Recipients = %q", p.Recipients)
	}
}

func TestBindFlags_Errors(t *testing.T) {
	if err := BindFlags(struct{}{}, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags(non-pointer) should fail")
	}

	type badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault{}, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags() with an unparseable default should fail")
	}

	type unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	if err := BindFlags(&unsupported{}, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags() with an unsupported type should fail")
	}
}
