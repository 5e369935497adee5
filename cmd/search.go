package cmd

import (
	"fmt"
	"time"

	"github.com/grovetools/finder/cli"
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/pkg/models"
	"github.com/grovetools/finder/pkg/profiling"
	"github.com/grovetools/finder/state"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
)

// NewSearchCmd returns the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search a saved scenario or an ad-hoc path",
		Long: `Search for entries whose name contains term (case-insensitive).

Choose what to search with --scenario (a saved scenario index) or --path
(an ad-hoc scenario built from --level, --target and --ext). Without either,
the previous search's scenario is reused; without a term, the previous term.

Examples:
  finder search config --scenario 0
  finder search test --path ~/src --target files --ext go
  finder search`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSearch,
	}
	cmd.Flags().IntP("scenario", "s", 0, "Index of the saved scenario to search")
	cmd.Flags().StringP("path", "p", "", "Search this path instead of a saved scenario")
	scenarioFlags(cmd)
	return cmd
}

// lastSearch is the search remembered in the state file.
type lastSearch struct {
	Term     string
	Index    *int
	Scenario *models.SearchScenario
}

func loadLastSearch() (lastSearch, error) {
	st, err := state.Load()
	if err != nil {
		return lastSearch{}, err
	}
	last := lastSearch{}
	last.Term, _ = st[state.KeyLastTerm].(string)

	switch v := st[state.KeyLastScenario].(type) {
	case int:
		last.Index = &v
	case map[string]interface{}:
		var s models.SearchScenario
		if err := mapstructure.Decode(v, &s); err == nil {
			last.Scenario = &s
		}
	}
	return last, nil
}

func saveLastSearch(req models.SearchRequest) error {
	var scenario interface{}
	switch {
	case req.Index != nil:
		scenario = *req.Index
	case req.Scenario != nil:
		scenario = map[string]interface{}{
			"Name":           req.Scenario.Name,
			"Path":           req.Scenario.Path,
			"Level":          string(req.Scenario.Level),
			"Target":         string(req.Scenario.Target),
			"FileExtensions": req.Scenario.FileExtensions,
		}
	}
	return state.Update(map[string]interface{}{
		state.KeyLastTerm:     req.Term,
		state.KeyLastScenario: scenario,
	})
}

// buildSearchRequest combines the arguments, flags and the previous search.
func buildSearchRequest(cmd *cobra.Command, args []string) (models.SearchRequest, error) {
	last, err := loadLastSearch()
	if err != nil {
		cli.GetLogger(cmd).WithError(err).Debug("Ignoring unreadable state file")
	}

	req := models.SearchRequest{Term: last.Term}
	if len(args) == 1 {
		req.Term = args[0]
	}
	if req.Term == "" {
		return req, errors.New(errors.ErrCodeInvalidInput, "a search term is required (no previous search to repeat)")
	}

	path, _ := cmd.Flags().GetString("path")
	switch {
	case cmd.Flags().Changed("scenario") && path != "":
		return req, errors.New(errors.ErrCodeInvalidInput, "use either --scenario or --path, not both")
	case cmd.Flags().Changed("scenario"):
		index, _ := cmd.Flags().GetInt("scenario")
		req.Index = &index
	case path != "":
		scenario, err := scenarioFromFlags(cmd, path)
		if err != nil {
			return req, err
		}
		req.Scenario = &scenario
	default:
		req.Index, req.Scenario = last.Index, last.Scenario
		if req.Index == nil && req.Scenario == nil {
			index := 0
			req.Index = &index
		}
	}
	return req, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	req, err := buildSearchRequest(cmd, args)
	if err != nil {
		return err
	}

	client, _, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	jsonOutput := cli.GetOptions(cmd).JSONOutput
	progress := cli.NewProgressReporter(cmd.ErrOrStderr(), fmt.Sprintf("Searching for %q", req.Term))
	if !jsonOutput {
		progress.Start()
	}
	span := profiling.Start("search")
	resp, err := client.Search(ctx, req)
	span.Stop()
	progress.Done()
	if err != nil {
		return err
	}

	if err := saveLastSearch(req); err != nil {
		cli.GetLogger(cmd).WithError(err).Warn("Failed to remember the search")
	}

	if jsonOutput {
		return cli.PrintJSON(cmd.OutOrStdout(), resp)
	}
	defer profiling.Start("render").Stop()
	cli.RenderResults(cmd.OutOrStdout(), resp.Results, time.Duration(resp.DurationMs)*time.Millisecond)
	return nil
}
