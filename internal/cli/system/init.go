package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/habitline/internal/cli"
	"github.com/julianstephens/habitline/internal/config"
	"github.com/julianstephens/habitline/internal/models"
)

type InitCmd struct {
	Force         bool `help:"Force reset by deleting the existing local store before initialization."`
	ResetSettings bool `help:"Overwrite stored settings with the values from the config file."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	local := ctx.Config == nil || ctx.Config.Storage.Driver != config.DriverPostgres
	path := ctx.Store.GetConfigPath()

	fresh := false
	if local {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fresh = true
		} else if err != nil {
			return fmt.Errorf("failed to access existing store: %w", err)
		} else if c.Force {
			// Close it first to prevent file locking issues
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing store: %w", err)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete existing store: %w", err)
			}
			fmt.Printf("Deleted existing store at: %s\n", path)
			fresh = true
		}
	} else if c.Force {
		return fmt.Errorf("--force is not supported for PostgreSQL; drop the schema manually")
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}

	if (fresh || c.ResetSettings) && ctx.Config != nil {
		settings := ctx.Config.SeedSettings(models.DefaultSettings())
		if err := ctx.Store.SaveSettings(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	// Reload drops anything a previous Open read from a deleted store
	if err := ctx.Reload(); err != nil {
		return err
	}
	ctx.Policy.RescheduleAll()

	fmt.Printf("Initialized habitline storage at: %s\n", path)
	return nil
}
