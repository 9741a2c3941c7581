package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/archway-labs/scout-cli/internal/audit"
	"github.com/archway-labs/scout-cli/internal/enrich"
	"github.com/archway-labs/scout-cli/internal/model"
)

var (
	crawlInstitution string
	crawlDepartment  string
	crawlListURL     string
	crawlLimit       int
	crawlBatchFile   string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl institution directories for candidates",
	Long:  "Crawls one institution's public directory pages, or a batch of institutions from a YAML file. Per-institution failures in a batch are logged and skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initScout(ctx, "crawl")
		if err != nil {
			return err
		}
		defer env.Close()

		if crawlBatchFile != "" {
			return crawlBatch(ctx, env, crawlBatchFile)
		}

		req := model.InstitutionCrawlRequest{
			InstitutionName: crawlInstitution,
			DepartmentHint:  crawlDepartment,
			ListURL:         crawlListURL,
			Limit:           crawlLimit,
		}

		records, err := crawlOne(ctx, env, req)
		if err != nil {
			return eris.Wrap(err, "crawl")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

// crawlOne runs a single institution crawl with enrichment and audit.
func crawlOne(ctx context.Context, env *scoutEnv, req model.InstitutionCrawlRequest) ([]model.CandidateRecord, error) {
	if req.Limit <= 0 {
		req.Limit = cfg.Fetch.CrawlLimit
	}

	started := time.Now()
	records, err := env.Crawler.Crawl(ctx, req)
	if err != nil {
		return nil, err
	}

	records = enrich.Publications(ctx, env.Crossref, records)

	audit.Record(ctx, env.Audit, uuid.NewString(), "crawl", req, &audit.RecordedResult{
		Records: records,
	}, started)

	zap.L().Info("crawl complete",
		zap.String("institution", req.InstitutionName),
		zap.Int("records", len(records)),
		zap.Duration("took", time.Since(started)),
	)
	return records, nil
}

// batchResult pairs one batch entry with its crawl outcome.
type batchResult struct {
	Institution string                  `json:"institution"`
	Records     []model.CandidateRecord `json:"records,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// crawlBatch runs every institution listed in a YAML file. Failures are
// reported per entry, never aborting the rest of the batch.
func crawlBatch(ctx context.Context, env *scoutEnv, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read batch file %s", path)
	}

	var reqs []model.InstitutionCrawlRequest
	if err := yaml.Unmarshal(data, &reqs); err != nil {
		return eris.Wrap(err, "parse batch file")
	}
	if len(reqs) == 0 {
		return eris.New("batch file lists no institutions")
	}

	results := make([]batchResult, 0, len(reqs))
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return err
		}

		records, err := crawlOne(ctx, env, req)
		if err != nil {
			zap.L().Warn("batch crawl entry failed, skipping",
				zap.String("institution", req.InstitutionName),
				zap.Error(err),
			)
			results = append(results, batchResult{
				Institution: req.InstitutionName,
				Error:       err.Error(),
			})
			continue
		}
		results = append(results, batchResult{
			Institution: req.InstitutionName,
			Records:     records,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func init() {
	crawlCmd.Flags().StringVar(&crawlInstitution, "institution", "", "institution name, e.g. \"Example University\"")
	crawlCmd.Flags().StringVar(&crawlDepartment, "department", "", "department hint to narrow the directory search")
	crawlCmd.Flags().StringVar(&crawlListURL, "list-url", "", "directory page URL, skips the search step")
	crawlCmd.Flags().IntVar(&crawlLimit, "limit", 0, "max profile pages to fetch (default from config)")
	crawlCmd.Flags().StringVar(&crawlBatchFile, "batch", "", "YAML file listing institutions to crawl")
	rootCmd.AddCommand(crawlCmd)
}
