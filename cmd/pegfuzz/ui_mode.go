package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// uiMode is the value of --ui. It implements pflag.Value, so a bad value
// is rejected while flags are parsed.
type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	m := uiMode(strings.ToLower(strings.TrimSpace(value)))
	if m == "" {
		return uiModeAuto, nil
	}
	if m != uiModeAuto && m != uiModeOn && m != uiModeOff {
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
	return m, nil
}

func (m *uiMode) String() string {
	if *m == "" {
		return string(uiModeAuto)
	}
	return string(*m)
}

func (m *uiMode) Set(value string) error {
	parsed, err := readUIMode(value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (*uiMode) Type() string { return "auto|on|off" }

func addUIFlag(cmd *cobra.Command) {
	mode := uiModeAuto
	cmd.Flags().Var(&mode, "ui", "progress UI when programs go to files")
}

// uiModeOf returns the parsed --ui flag of cmd, auto when it has none.
func uiModeOf(cmd *cobra.Command) uiMode {
	if f := cmd.Flags().Lookup("ui"); f != nil {
		if m, ok := f.Value.(*uiMode); ok {
			return *m
		}
	}
	return uiModeAuto
}

// progressUI reports whether the progress UI takes over the terminal.
// Programs printed to stdout always win over the UI; auto follows
// whether stdout is a terminal.
func (m uiMode) progressUI(programsOnStdout, stdoutIsTerminal bool) bool {
	if programsOnStdout {
		return false
	}
	return m == uiModeOn || (m == uiModeAuto && stdoutIsTerminal)
}

func stdoutIsTerminal() bool { return isTerminal(os.Stdout) }
