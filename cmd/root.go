// Package cmd implements the registry command line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-doc-registry/library/auth"
	"github.com/Laisky/laisky-doc-registry/library/config"
	"github.com/Laisky/laisky-doc-registry/library/log"
)

var rootCMD = &cobra.Command{
	Use:   "laisky-doc-registry",
	Short: "laisky-doc-registry",
	Long:  `access-controlled document catalog`,
	Args:  gcmd.NoExtraArgs,
}

func initialize(ctx context.Context, cmd *cobra.Command) error {
	if err := gconfig.Shared.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind pflags")
	}

	setupSettings(ctx)
	setupLogger(ctx)
	setupLibrary(ctx)

	return nil
}

func setupLibrary(ctx context.Context) {
	// token verification is optional, the CLI also accepts --principal
	if secret := gconfig.Shared.GetString("settings.secret"); secret != "" {
		if err := auth.Initialize([]byte(secret)); err != nil {
			log.Logger.Panic("init auth", zap.Error(err))
		}
	}
}

func setupSettings(ctx context.Context) {
	// mode
	if gconfig.Shared.GetBool("debug") {
		fmt.Println("run in debug mode")
		gconfig.Shared.Set("log-level", "debug")
	} else { // prod mode
		fmt.Println("run in prod mode")
	}

	// load configuration
	cfgPath := gconfig.Shared.GetString("config")
	config.LoadFromFile(cfgPath)
}

func setupLogger(ctx context.Context) {
	lvl := gconfig.Shared.GetString("log-level")
	if err := log.Logger.ChangeLevel(glog.Level(lvl)); err != nil {
		log.Logger.Panic("change log level", zap.Error(err), zap.String("level", lvl))
	}
}

func init() {
	rootCMD.PersistentFlags().Bool("debug", false, "run in debug mode")
	rootCMD.PersistentFlags().Bool("dry", false, "run in dry mode")
	rootCMD.PersistentFlags().StringP("config", "c", "/etc/laisky-doc-registry/settings.yml", "config file path")
	rootCMD.PersistentFlags().String("log-level", "info", "`debug/info/error`")
	rootCMD.PersistentFlags().String("principal", "", "acting principal")
	rootCMD.PersistentFlags().String("token", "", "bearer token carrying the acting principal")
}

// Execute execute root command
func Execute() {
	if err := rootCMD.Execute(); err != nil {
		glog.Shared.Panic("start", zap.Error(err))
	}
}
