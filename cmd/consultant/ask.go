package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/consultant/internal/model/mode"
)

func runAsk(cmd *cobra.Command, args []string) error {
	m, err := mode.ParseMode(modeFlag)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}

	info := engine.CreateSession("ask")
	reply, err := engine.Turn(cmd.Context(), info.ID, m, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := reply + "\n"
	if r := newRenderer(); r != nil {
		if rendered, err := r.Render(reply); err == nil {
			out = rendered
		}
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
