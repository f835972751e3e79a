package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rosterfill/rosterfill/internal/checkpoint"
	"github.com/rosterfill/rosterfill/internal/model"
	"github.com/rosterfill/rosterfill/internal/pipeline"
	"github.com/rosterfill/rosterfill/internal/roster"
)

var (
	inputPath      string
	outputJSON     string
	outputXLSX     string
	timeout        time.Duration
	userAgent      string
	maxBytes       int64
	searchRetries  int
	searchBackoff  time.Duration
	rowDelay       time.Duration
	phoneRegion    string
	districtPolicy string
	addressPolicy  string
	noCache        bool
	cacheDir       string
	noRobots       bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich the roster, checkpointing after every row",
	Long: `Run processes the roster one row at a time:
- Search the web for the school's official website
- Scrape each candidate page and its contact/about subpages
- Merge the extracted fields (first found wins)
- Append the record to the JSON checkpoint and persist

Rows already checkpointed are skipped, so rerunning after an interrupt
resumes from the last completed row. The enriched table is exported
when the roster is exhausted or the run is interrupted.

Requires the SERPER_API_KEY environment variable.

Example:
  rosterfill run
  rosterfill run --input schools.xlsx --xlsx schools_enriched.xlsx
  rosterfill run --district-policy simple --delay 2s`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Path flags
	runCmd.Flags().StringVar(&inputPath, "input", "roster.xlsx", "input roster xlsx")
	runCmd.Flags().StringVar(&outputJSON, "json", "roster_checkpoint.json", "checkpoint JSON path")
	runCmd.Flags().StringVar(&outputXLSX, "xlsx", "roster_enriched.xlsx", "output table path")

	// HTTP flags
	runCmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "per-request HTTP timeout")
	runCmd.Flags().StringVar(&userAgent, "ua", "Mozilla/5.0 (compatible; rosterfill/0.1)", "HTTP User-Agent")
	runCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")

	// Search flags
	runCmd.Flags().IntVar(&searchRetries, "search-retries", 5, "search attempts before giving up on a row")
	runCmd.Flags().DurationVar(&searchBackoff, "search-backoff", 2*time.Second, "wait between search attempts")

	// Extraction flags
	runCmd.Flags().StringVar(&phoneRegion, "phone-region", "IN", "phone-number region code")
	runCmd.Flags().StringVar(&districtPolicy, "district-policy", "rich", "district heuristic (simple, rich)")
	runCmd.Flags().StringVar(&addressPolicy, "address-policy", "accumulate", "address merge policy (first, accumulate)")

	// Politeness flags
	runCmd.Flags().DurationVar(&rowDelay, "delay", time.Second, "delay between processed rows")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page cache (force fresh fetches)")
	runCmd.Flags().StringVar(&cacheDir, "cache-dir", ".rosterfill-cache", "page cache directory")
	runCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt checks")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Build configuration from flags
	cfg := model.DefaultConfig()
	cfg.Paths.Input = inputPath
	cfg.Paths.OutputJSON = outputJSON
	cfg.Paths.OutputXLSX = outputXLSX
	cfg.HTTP.Timeout = timeout
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.Search.Retries = searchRetries
	cfg.Search.Backoff = searchBackoff
	cfg.Extract.PhoneRegion = phoneRegion
	cfg.Extract.DistrictPolicy = districtPolicy
	cfg.Extract.AddressPolicy = addressPolicy
	cfg.Rate.RowDelay = rowDelay
	cfg.Cache.Enabled = !noCache
	cfg.Cache.Dir = cacheDir
	cfg.Robots.Enabled = !noRobots

	cfg.Search.APIKey = os.Getenv("SERPER_API_KEY")
	if cfg.Search.APIKey == "" {
		return fmt.Errorf("SERPER_API_KEY environment variable not set")
	}

	fmt.Printf("Loading roster: %s\n", cfg.Paths.Input)
	rows, header, err := roster.Load(cfg.Paths.Input)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	fmt.Printf("Loaded %d records from roster\n", len(rows))

	store, err := checkpoint.Load(cfg.Paths.OutputJSON)
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	if store.Len() > 0 {
		fmt.Printf("Loaded %d existing records from checkpoint\n", store.Len())
	}

	p, err := pipeline.NewPipeline(cfg, store)
	if err != nil {
		return err
	}

	// An interrupt stops the row loop at the next boundary; everything
	// already checkpointed is kept and exported below.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p.Run(ctx, rows)

	if store.Len() > 0 {
		if err := roster.Export(cfg.Paths.OutputXLSX, header, store.Records()); err != nil {
			fmt.Printf("Error saving table: %v\n", err)
		} else {
			fmt.Printf("Table saved to %s\n", cfg.Paths.OutputXLSX)
		}
	} else {
		fmt.Println("No data to save to table")
	}

	fmt.Printf("Process completed. Total records processed: %d\n", store.Len())
	return nil
}
