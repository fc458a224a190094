package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/tvcatalog/tvdb"
)

var (
	// Command flags
	seriesID     int
	attrKey      string
	searchKey    string
	airedOn      string
	filterExpr   string
	preset       string
	showBanners  bool
	showActors   bool
	dvdOrder     bool
	allLanguages bool
)

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(episodeCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(testCmd)

	searchCmd.Flags().BoolVar(&allLanguages, "all-languages", false, "search in every language")

	showCmd.Flags().IntVar(&seriesID, "id", 0, "look the series up by id instead of name")
	showCmd.Flags().StringVar(&attrKey, "attr", "", "print a single series attribute or season")
	showCmd.Flags().BoolVar(&showBanners, "banners", false, "fetch banner artwork")
	showCmd.Flags().BoolVar(&showActors, "actors", false, "fetch the cast")
	showCmd.Flags().BoolVar(&dvdOrder, "dvd-order", false, "number episodes by DVD order")

	episodeCmd.Flags().StringVar(&attrKey, "attr", "", "print a single episode attribute")
	episodeCmd.Flags().BoolVar(&dvdOrder, "dvd-order", false, "number episodes by DVD order")

	findCmd.Flags().StringVarP(&searchKey, "key", "k", "", "only search this episode attribute")
	findCmd.Flags().StringVar(&airedOn, "aired-on", "", "episodes first aired on this date (YYYY-MM-DD)")
	findCmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "filter expression")
	findCmd.Flags().StringVarP(&preset, "preset", "p", "", "use a preset filter from config")
	findCmd.Flags().BoolVar(&dvdOrder, "dvd-order", false, "number episodes by DVD order")
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "List series matching a name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	logger.Info().Str("name", name).Msg("Searching series")

	candidates, err := client.Search(cmd.Context(), name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nFound %d series:\n", len(candidates))
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, c := range candidates {
		fmt.Fprintf(out, "• %s [%d]", c.SeriesName, c.ID)
		if c.Language != "" {
			fmt.Fprintf(out, " (%s)", c.Language)
		}
		fmt.Fprintln(out)
		if c.FirstAired != "" {
			fmt.Fprintf(out, "  First aired: %s\n", c.FirstAired)
		}
		if c.Network != "" {
			fmt.Fprintf(out, "  Network: %s\n", c.Network)
		}
	}
	return nil
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a series and its seasons",
	Args: func(cmd *cobra.Command, args []string) error {
		if seriesID == 0 && len(args) == 0 {
			return fmt.Errorf("a show name or --id is required")
		}
		return nil
	},
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		series *tvdb.Series
		err    error
	)
	if seriesID > 0 {
		series, err = client.GetByID(ctx, tvdb.SeriesID(seriesID))
	} else {
		series, err = client.Get(ctx, strings.Join(args, " "))
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if attrKey != "" {
		value, err := series.Lookup(attrKey)
		if err != nil {
			return err
		}
		if season, ok := value.(*tvdb.Season); ok {
			printSeason(out, season)
			return nil
		}
		fmt.Fprintln(out, formatValue(value))
		return nil
	}

	fmt.Fprintf(out, "\n%s [%d]\n", series.Name(), series.ID())
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, key := range []string{"network", "status", "firstAired", "airsDayOfWeek", "airsTime", "runtime", "imdbId"} {
		if v, err := series.Attr(key); err == nil && v != nil && formatValue(v) != "" {
			fmt.Fprintf(out, "  %s: %s\n", key, formatValue(v))
		}
	}
	if v, err := series.Attr("overview"); err == nil && v != nil {
		fmt.Fprintf(out, "\n%s\n", formatValue(v))
	}

	fmt.Fprintln(out)
	for _, season := range series.Seasons() {
		fmt.Fprintf(out, "• Season %d: %d episodes\n", season.Number(), season.Len())
	}

	if banners := series.Banners(); banners != nil {
		fmt.Fprintln(out, "\nBanners:")
		for keyType, group := range banners {
			total := 0
			for _, byID := range group.ByResolution {
				total += len(byID)
			}
			fmt.Fprintf(out, "  %s: %d\n", keyType, total)
		}
	}

	if actors := series.Actors(); len(actors) > 0 {
		fmt.Fprintln(out, "\nActors:")
		for _, a := range actors {
			fmt.Fprintf(out, "  %s as %s\n", a.Name, a.Role)
		}
	}

	return nil
}

// episodeCmd represents the episode command
var episodeCmd = &cobra.Command{
	Use:   "episode <show> <season> <episode>",
	Short: "Print one episode",
	Args:  cobra.ExactArgs(3),
	RunE:  runEpisode,
}

func runEpisode(cmd *cobra.Command, args []string) error {
	seasonNum, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid season number %q", args[1])
	}
	episodeNum, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid episode number %q", args[2])
	}

	series, err := client.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	season, err := series.Season(seasonNum)
	if err != nil {
		return err
	}
	ep, err := season.Episode(episodeNum)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if attrKey != "" {
		value, err := ep.Attr(attrKey)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, formatValue(value))
		return nil
	}

	printEpisode(out, ep, true)
	return nil
}

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find <show> [term]",
	Short: "Search the episodes of a series",
	Long: `Search the episodes of a series by a term, by air date, or with a filter expression.

Examples:
  tvcatalog find scrubs mentor
  tvcatalog find scrubs --key episodeName "my first"
  tvcatalog find scrubs --aired-on 2001-10-02
  tvcatalog find scrubs --filter 'Season == 1 and Rating > 8'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFind,
}

func runFind(cmd *cobra.Command, args []string) error {
	if airedOn == "" && len(args) < 2 && filterExpr == "" && preset == "" {
		return fmt.Errorf("a search term, --aired-on, --filter or --preset is required")
	}

	ctx := cmd.Context()

	series, err := client.Get(ctx, args[0])
	if err != nil {
		return err
	}

	var episodes []*tvdb.Episode
	switch {
	case airedOn != "":
		date, err := time.Parse(time.DateOnly, airedOn)
		if err != nil {
			return fmt.Errorf("invalid --aired-on date %q: %w", airedOn, err)
		}
		episodes, err = series.AiredOn(date)
		if err != nil {
			return err
		}
	case len(args) == 2:
		episodes = series.Search(args[1], searchKey)
	default:
		episodes = series.Episodes()
	}

	switch {
	case filterExpr != "":
		compiled, err := filters.Compile(filterExpr)
		if err != nil {
			return fmt.Errorf("invalid filter expression: %w", err)
		}
		if episodes, err = filters.Apply(ctx, compiled, episodes); err != nil {
			return err
		}
	case preset != "":
		if episodes, err = filters.EvaluateFilter(ctx, preset, episodes); err != nil {
			return fmt.Errorf("preset '%s': %w", preset, err)
		}
	}

	out := cmd.OutOrStdout()
	if len(episodes) == 0 {
		fmt.Fprintln(out, "No episodes found.")
		return nil
	}

	fmt.Fprintf(out, "\nFound %d episodes:\n", len(episodes))
	fmt.Fprintln(out, strings.Repeat("-", 80))
	for _, ep := range episodes {
		printEpisode(out, ep, false)
	}
	return nil
}

// languagesCmd represents the languages command
var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the language abbreviations TheTVDB accepts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		langs, err := client.Languages(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(langs, " "))
		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the TheTVDB credentials",
	Long:  `Log in to TheTVDB once to check that the configured API key (and optional user credentials) are accepted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Testing login to %s...\n", cfg.TVDB.BaseURL)
		if err := client.Authorize(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(out, "✓ Login successful!")
		return nil
	},
}

func printSeason(out io.Writer, season *tvdb.Season) {
	fmt.Fprintf(out, "Season %d (%d episodes)\n", season.Number(), season.Len())
	for _, ep := range season.Episodes() {
		printEpisode(out, ep, false)
	}
}

func printEpisode(out io.Writer, ep *tvdb.Episode, details bool) {
	fmt.Fprintf(out, "• %s\n", ep)
	if aired := ep.FirstAired(); aired != "" {
		fmt.Fprintf(out, "  Aired: %s\n", aired)
	}
	if details {
		if overview := ep.Overview(); overview != "" {
			fmt.Fprintf(out, "\n%s\n", overview)
		}
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
