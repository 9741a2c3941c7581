package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/audit"
	"github.com/archway-labs/scout-cli/internal/enrich"
	"github.com/archway-labs/scout-cli/internal/model"
)

var (
	discoverPurpose     string
	discoverField       string
	discoverTarget      int
	discoverMustHave    []string
	discoverMustNot     []string
	discoverSeniority   string
	discoverOrgType     string
	discoverLocation    string
	discoverTradeoff    string
	discoverSenderName  string
	discoverSenderEdu   []string
	discoverSenderExp   []string
	discoverSenderSkill []string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover candidates matching a contact brief",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initScout(ctx, "discover")
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.DiscoveryRequest{
			Purpose:     discoverPurpose,
			Field:       discoverField,
			TargetCount: discoverTarget,
			Preferences: &model.DiscoveryPreferences{
				MustHave:               discoverMustHave,
				MustNot:                discoverMustNot,
				Seniority:              discoverSeniority,
				OrganizationType:       discoverOrgType,
				Location:               discoverLocation,
				ContactabilityTradeoff: discoverTradeoff,
			},
		}
		if discoverSenderName != "" || len(discoverSenderEdu) > 0 || len(discoverSenderExp) > 0 || len(discoverSenderSkill) > 0 {
			req.Sender = &model.SenderContext{
				Name:       discoverSenderName,
				Education:  discoverSenderEdu,
				Experience: discoverSenderExp,
				Skills:     discoverSenderSkill,
			}
		}

		started := time.Now()
		result, err := env.Engine.Discover(ctx, req)
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		result.Records = enrich.Publications(ctx, env.Crossref, result.Records)

		audit.Record(ctx, env.Audit, uuid.NewString(), "discover", req, &audit.RecordedResult{
			Strategy: result.StrategyUsed,
			Degraded: result.Degraded,
			Records:  result.Records,
		}, started)

		zap.L().Info("discovery complete",
			zap.String("strategy", result.StrategyUsed),
			zap.Bool("degraded", result.Degraded),
			zap.Int("records", len(result.Records)),
			zap.Duration("took", time.Since(started)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverPurpose, "purpose", "", "why you want the contact, e.g. \"find a PhD advisor\" (required)")
	discoverCmd.Flags().StringVar(&discoverField, "field", "", "field or topic of interest (required)")
	discoverCmd.Flags().IntVar(&discoverTarget, "target", 10, "number of candidates to return")
	discoverCmd.Flags().StringSliceVar(&discoverMustHave, "must-have", nil, "hard requirement, repeatable")
	discoverCmd.Flags().StringSliceVar(&discoverMustNot, "must-not", nil, "hard exclusion, repeatable")
	discoverCmd.Flags().StringVar(&discoverSeniority, "seniority", "", "desired seniority, e.g. professor, senior engineer")
	discoverCmd.Flags().StringVar(&discoverOrgType, "org-type", "", "organization type, e.g. university, startup")
	discoverCmd.Flags().StringVar(&discoverLocation, "location", "", "geographic preference")
	discoverCmd.Flags().StringVar(&discoverTradeoff, "contactability", "", "tradeoff between fit and reachability")
	discoverCmd.Flags().StringVar(&discoverSenderName, "sender-name", "", "your name, excluded from results")
	discoverCmd.Flags().StringSliceVar(&discoverSenderEdu, "sender-education", nil, "your education, used to bias matches")
	discoverCmd.Flags().StringSliceVar(&discoverSenderExp, "sender-experience", nil, "your experience, used to bias matches")
	discoverCmd.Flags().StringSliceVar(&discoverSenderSkill, "sender-skill", nil, "your skills, used to bias matches")
	_ = discoverCmd.MarkFlagRequired("purpose")
	_ = discoverCmd.MarkFlagRequired("field")
	rootCmd.AddCommand(discoverCmd)
}
