package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forPelevin/shortsmith/internal/executor"
	"github.com/forPelevin/shortsmith/internal/pipeline"
	"github.com/forPelevin/shortsmith/internal/types"
)

func newVoicesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "voices",
		Short:        "List voices of the configured TTS provider",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			tts, err := pipeline.NewTTS(cfg, executor.New(nil, false))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			voices, err := tts.ListVoices(ctx)
			if err != nil {
				return fmt.Errorf("list voices: %w", err)
			}

			locale, _ := cmd.Flags().GetString("locale")
			gender, _ := cmd.Flags().GetString("gender")
			voices = filterVoices(voices, locale, gender)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLOCALE\tGENDER")
			for _, vc := range voices {
				fmt.Fprintf(w, "%s\t%s\t%s\n", vc.ID, vc.Locale, vc.Gender)
			}
			return w.Flush()
		},
	}
	cmd.Flags().String("locale", "", "Only voices whose locale starts with this, e.g. en or en-US")
	cmd.Flags().String("gender", "", "Only Male or Female voices")
	return cmd
}

func filterVoices(voices []types.Voice, locale, gender string) []types.Voice {
	return lo.Filter(voices, func(vc types.Voice, _ int) bool {
		if locale != "" && !strings.HasPrefix(strings.ToLower(vc.Locale), strings.ToLower(locale)) {
			return false
		}
		return gender == "" || strings.EqualFold(vc.Gender, gender)
	})
}
