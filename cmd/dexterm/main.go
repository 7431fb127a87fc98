package main

import (
	"encoding/json"
	"fmt"
	"os"

	dexterm "github.com/featherdex/dexterm/pkg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var configPath string
	var config dexterm.Config

	rootCmd := &cobra.Command{
		Use:   "dexterm",
		Short: "order execution and trade reconciliation engine",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(0)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&config.Engine.Coin, "coin", "", "Coin config key")
	rootCmd.PersistentFlags().IntVar(&config.Engine.RPCAttempts, "rpc-attempts", 0, "RPC retry attempts")
	rootCmd.PersistentFlags().StringVar(&config.Engine.LogFile, "log-file", "", "Engine log file")
	viper.BindPFlags(rootCmd.PersistentFlags())

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background trade reconciler",
		Run: func(cmd *cobra.Command, args []string) {
			loadConfig(configPath, &config)
			Daemon(config)
		},
	}

	configCmd := &cobra.Command{
		Use:   "showconf",
		Short: "Print the config state and exit",
		Run: func(cmd *cobra.Command, args []string) {
			loadConfig(configPath, &config)
			o, _ := json.MarshalIndent(config, "", "  ")
			fmt.Println(string(o))
			os.Exit(0)
		},
	}

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(configPath string, config *dexterm.Config) {
	if configPath == "" {
		configPath = "config.yml"
		if env, set := os.LookupEnv("DEXTERM_CONFIG"); set {
			configPath = env
		}
	}
	*config = dexterm.LoadConfig(configPath)
}
