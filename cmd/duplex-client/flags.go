package main

import (
	"github.com/spf13/cobra"
)

func applyFlagOverrides(cmd *cobra.Command, base Config, flags Config) Config {
	if flagChanged(cmd, "gateway") {
		base.GatewayURL = flags.GatewayURL
	}
	if flagChanged(cmd, "token") {
		base.AuthToken = flags.AuthToken
	}
	if flagChanged(cmd, "log-level") {
		base.LogLevel = flags.LogLevel
	}
	if flagChanged(cmd, "timeout") {
		base.LocalTimeout = flags.LocalTimeout
	}
	return base
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Changed
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil {
		return f.Changed
	}
	return false
}
