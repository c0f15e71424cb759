package main

import (
	"context"
	"fmt"

	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// ArgsCmd implements the 'args' command.
type ArgsCmd struct {
	BuildFlags
}

func (a *ArgsCmd) Run(g *Global, cli *CLI) error {
	req, err := a.request()
	if err != nil {
		return err
	}

	plan, err := newOrchestrator(cli, g.Logger, 0, true).Plan(context.Background(), req)
	if err != nil {
		return err
	}

	fmt.Fprintf(g.Out, "# %s/%s %s\n", plan.Recipe, plan.Version, plan.PackageID)
	for _, arg := range plan.ConfigureArgs {
		fmt.Fprintln(g.Out, arg)
	}
	for _, name := range plan.IgnoredOptions {
		g.Logger.Warn("option ignored for this configuration", interfaces.F("option", name))
	}
	return nil
}
