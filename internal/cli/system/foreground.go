package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitline/internal/cli"
)

// ForegroundCmd runs the recheck done when the user returns to habitline.
type ForegroundCmd struct{}

func (c *ForegroundCmd) Run(ctx *cli.Context) error {
	if err := ctx.Open(); err != nil {
		return err
	}
	n, err := ctx.Tracker.Foreground(context.Background())
	if err != nil {
		return err
	}
	if n > 0 {
		fmt.Printf("%d habit(s) still pending today.\n", n)
	} else {
		fmt.Println("Reminders are up to date.")
	}
	return nil
}
