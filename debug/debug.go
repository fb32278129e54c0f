// Package debug gates diagnostic logging behind RG_DEBUG_* environment
// variables.
package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Slice   bool
	Eval    bool
	Buffers bool
	Store   bool
}

var d *debug

func init() {
	d = &debug{}
	d.Slice = boolEnv("RG_DEBUG_SLICE")
	d.Eval = boolEnv("RG_DEBUG_EVAL")
	d.Buffers = boolEnv("RG_DEBUG_BUFFERS")
	d.Store = boolEnv("RG_DEBUG_STORE")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Slice() bool {
	return d.Slice
}
func Eval() bool {
	return d.Eval
}
func Buffers() bool {
	return d.Buffers
}
func Store() bool {
	return d.Store
}
