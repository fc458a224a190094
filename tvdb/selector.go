package tvdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const consoleDisplayLimit = 6

// FirstSelector picks the first search result without asking.
type FirstSelector struct{}

// SelectSeries implements Selector.
func (FirstSelector) SelectSeries(candidates []SeriesCandidate) (SeriesCandidate, error) {
	if len(candidates) == 0 {
		return SeriesCandidate{}, &ShowNotFoundError{Message: "no search results to select from"}
	}
	return candidates[0], nil
}

// ConsoleSelector asks the user to pick a series on a terminal.
type ConsoleSelector struct {
	in          *bufio.Scanner
	out         io.Writer
	selectFirst bool
	interactive bool
	logger      zerolog.Logger
}

// NewConsoleSelector creates a selector reading answers from in and writing
// prompts to out. When in is a file that is not a terminal the selector
// behaves like FirstSelector.
func NewConsoleSelector(in io.Reader, out io.Writer, selectFirst bool, logger zerolog.Logger) *ConsoleSelector {
	interactive := true
	if f, ok := in.(*os.File); ok {
		fd := f.Fd()
		interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return &ConsoleSelector{
		in:          bufio.NewScanner(in),
		out:         out,
		selectFirst: selectFirst,
		interactive: interactive,
		logger:      logger,
	}
}

// SelectSeries implements Selector.
func (c *ConsoleSelector) SelectSeries(candidates []SeriesCandidate) (SeriesCandidate, error) {
	if len(candidates) == 0 {
		return SeriesCandidate{}, &ShowNotFoundError{Message: "no search results to select from"}
	}
	if !c.interactive {
		c.logger.Debug().Msg("Input is not a terminal, selecting first result")
		return candidates[0], nil
	}

	c.display(candidates, consoleDisplayLimit)

	if len(candidates) == 1 {
		fmt.Fprintln(c.out, "Automatically selecting only result")
		return candidates[0], nil
	}
	if c.selectFirst {
		fmt.Fprintln(c.out, "Automatically returning first search result")
		return candidates[0], nil
	}

	for {
		fmt.Fprintln(c.out, "Enter choice (first number, return for default, 'all', ? for help):")
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return SeriesCandidate{}, fmt.Errorf("%w: %v", ErrUserAbort, err)
			}
			return SeriesCandidate{}, fmt.Errorf("%w (EOF received)", ErrUserAbort)
		}
		ans := c.in.Text()
		c.logger.Debug().Str("answer", ans).Msg("Got choice")

		trimmed := strings.TrimSpace(ans)
		if n, err := strconv.Atoi(trimmed); err == nil {
			if n < 1 || n > len(candidates) {
				fmt.Fprintf(c.out, "Invalid number (%d) selected!\n", n)
				c.display(candidates, consoleDisplayLimit)
				continue
			}
			return candidates[n-1], nil
		}

		switch {
		case trimmed == "":
			return candidates[0], nil
		case ans == "q":
			return SeriesCandidate{}, fmt.Errorf("%w ('q' quit command)", ErrUserAbort)
		case ans == "?":
			fmt.Fprintln(c.out, "## Help")
			fmt.Fprintln(c.out, "# Enter the number that corresponds to the correct show.")
			fmt.Fprintln(c.out, "# a - display all results")
			fmt.Fprintln(c.out, "# all - display all results")
			fmt.Fprintln(c.out, "# ? - this help")
			fmt.Fprintln(c.out, "# q - abort")
			fmt.Fprintln(c.out, "# Press return with no input to select first result")
		case strings.EqualFold(ans, "a") || strings.EqualFold(ans, "all"):
			c.display(candidates, 0)
		default:
			c.logger.Debug().Str("answer", ans).Msg("Unknown keypress")
		}
	}
}

// display lists candidates, at most limit of them when limit > 0.
func (c *ConsoleSelector) display(candidates []SeriesCandidate, limit int) {
	shown := candidates
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	fmt.Fprintln(c.out, "TVDB Search Results:")
	for i, cand := range shown {
		extra := ""
		if i == 0 {
			extra = " (default)"
		}
		fmt.Fprintf(c.out, "%d -> %s [%s] # http://thetvdb.com/?tab=series&id=%d%s\n",
			i+1, cand.SeriesName, cand.Language, cand.ID, extra)
	}
}
