package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

var (
	_ pflag.Value = (*outputFormat)(nil)
	_ pflag.Value = (*colorMode)(nil)
)

type outputFormat int

const (
	formatPlain outputFormat = iota
	formatJSON
	formatMsgpack
)

var formatNames = []string{"plain", "json", "msgpack"}

func (f *outputFormat) String() string { return formatNames[*f] }

// Set accepts a format name in any case.
func (f *outputFormat) Set(s string) error {
	i, err := parseEnum(s, formatNames)
	if err != nil {
		return err
	}
	*f = outputFormat(i)
	return nil
}

func (f *outputFormat) Type() string { return "format" }

type colorMode int

const (
	colorAuto colorMode = iota
	colorAlways
	colorNever
)

var colorNames = []string{"auto", "always", "never"}

func (c *colorMode) String() string { return colorNames[*c] }

func (c *colorMode) Set(s string) error {
	i, err := parseEnum(s, colorNames)
	if err != nil {
		return err
	}
	*c = colorMode(i)
	return nil
}

func (c *colorMode) Type() string { return "mode" }

func parseEnum(s string, names []string) (int, error) {
	for i, name := range names {
		if strings.EqualFold(s, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid value %q, expected one of %s", s, strings.Join(names, ", "))
}
