package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alphaexam/alphaexam-backend/internal/client"
	"github.com/alphaexam/alphaexam-backend/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "alphaexam",
		Short:         "Take AlphaExam mock exams from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	f := root.PersistentFlags()
	f.String("server", "http://localhost:8080", "AlphaExam API base URL")
	f.String("token", "", "Bearer token issued by the identity provider")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "pretty", "Log format (pretty, json)")

	root.AddCommand(examsCmd(), takeCmd(), analysisCmd())
	return root
}

// viperForCmd binds a command's flags, ALPHAEXAM_* environment variables and
// an optional alphaexam.yaml to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("ALPHAEXAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("alphaexam")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/alphaexam")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "warning: reading config: %v\n", err)
		}
	}
	return v
}

// setup builds the logger and API client shared by every subcommand.
func setup(cmd *cobra.Command) (*client.Client, zerolog.Logger, error) {
	v := viperForCmd(cmd)
	log := logger.New(os.Stderr, v.GetString("log-level"), v.GetString("log-format"))

	token := v.GetString("token")
	if token == "" {
		return nil, log, fmt.Errorf("no token: pass --token or set ALPHAEXAM_TOKEN")
	}
	return client.New(v.GetString("server"), token), log, nil
}

func examsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exams",
		Short: "List the exams you can take",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, _, err := setup(cmd)
			if err != nil {
				return err
			}
			exams, err := api.ListExams(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tMINUTES\tPRICE")
			for _, e := range exams {
				price := "free"
				if !e.IsFree {
					price = fmt.Sprintf("%d credits", e.PriceCredits)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ID, e.Title, e.DurationMinutes, price)
			}
			return tw.Flush()
		},
	}
}
