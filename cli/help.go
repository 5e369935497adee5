package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	helpMaxWidth = 72
	helpMinWidth = 40
)

// helpWidth returns the terminal width clamped to [helpMinWidth, helpMaxWidth].
func helpWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < helpMinWidth || width > helpMaxWidth {
		return helpMaxWidth
	}
	return width
}

// wrapText wraps each paragraph of text to width, keeping explicit line breaks.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = helpMaxWidth
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) <= width {
			lines = append(lines, paragraph)
			continue
		}
		var line string
		for _, word := range strings.Fields(paragraph) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= width:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// SetStyledHelp installs the styled help function on cmd.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelp)
}

// ApplyStyledHelpRecursive installs styled help on cmd and every
// subcommand. Call it once the command tree is complete.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	cmd.SetHelpFunc(styledHelp)
	cmd.SetUsageFunc(func(*cobra.Command) error { return nil })
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

// PrintError prints a usage error with a pointer to --help.
func PrintError(cmd *cobra.Command, err error) {
	t := DefaultTheme
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", t.Error.Render("Error:"), err.Error())
	fmt.Fprintln(cmd.ErrOrStderr(), t.Muted.Render(fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath())))
}

// splitExamples separates an "Examples:" trailer from a long description.
func splitExamples(long string) (description, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if idx := strings.Index(long, marker); idx != -1 {
			return strings.TrimSpace(long[:idx]), strings.TrimSpace(long[idx+len(marker):])
		}
	}
	return long, ""
}

func styledHelp(cmd *cobra.Command, _ []string) {
	writeHelp(cmd.OutOrStdout(), cmd, DefaultTheme, helpWidth()-2)
}

func writeHelp(w io.Writer, cmd *cobra.Command, t *Theme, width int) {
	command := lipgloss.NewStyle().Bold(true).Foreground(t.Colors.Blue)
	flagStyle := lipgloss.NewStyle().Foreground(t.Colors.Violet)

	fmt.Fprintln(w, " "+t.Title.Render(strings.ToUpper(cmd.CommandPath())))

	description, examples := splitExamples(cmd.Long)
	if cmd.Short != "" {
		for _, line := range wrapText(cmd.Short, width) {
			fmt.Fprintln(w, " "+t.Italic.Render(line))
		}
	}
	if description != "" && description != cmd.Short {
		fmt.Fprintln(w)
		for _, line := range wrapText(description, width) {
			fmt.Fprintln(w, " "+line)
		}
	}

	if cmd.Runnable() || cmd.HasSubCommands() {
		fmt.Fprintln(w, "\n "+t.Section.Render("USAGE"))
		if cmd.Runnable() {
			fmt.Fprintf(w, " %s\n", cmd.UseLine())
		}
		if cmd.HasSubCommands() {
			fmt.Fprintf(w, " %s [command]\n", cmd.CommandPath())
		}
	}

	if cmd.HasAvailableSubCommands() {
		width := 0
		for _, sub := range cmd.Commands() {
			if sub.IsAvailableCommand() && len(sub.Name()) > width {
				width = len(sub.Name())
			}
		}
		fmt.Fprintln(w, "\n "+t.Section.Render("COMMANDS"))
		for _, sub := range cmd.Commands() {
			if !sub.IsAvailableCommand() {
				continue
			}
			pad := strings.Repeat(" ", width-len(sub.Name()))
			fmt.Fprintf(w, " %s%s  %s\n", command.Render(sub.Name()), pad, sub.Short)
		}
	}

	var flags []*pflag.Flag
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if !f.Hidden {
			flags = append(flags, f)
		}
	})
	if len(flags) > 0 {
		if cmd.HasAvailableSubCommands() {
			names := make([]string, 0, len(flags))
			for _, f := range flags {
				names = append(names, strings.TrimSpace(flagName(f)))
			}
			fmt.Fprintln(w, "\n "+t.Muted.Render("Flags: "+strings.Join(names, ", ")))
		} else {
			fmt.Fprintln(w, "\n "+t.Section.Render("FLAGS"))
			width := 0
			for _, f := range flags {
				if n := len(flagName(f)); n > width {
					width = n
				}
			}
			for _, f := range flags {
				name := flagName(f)
				usage, choices := splitChoices(f.Usage)
				if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" && f.DefValue != "0" {
					usage += t.Muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
				}
				fmt.Fprintf(w, " %s%s  %s\n", flagStyle.Render(name), strings.Repeat(" ", width-len(name)), usage)
				for _, choice := range choices {
					fmt.Fprintf(w, " %s  %s\n", strings.Repeat(" ", width), t.Muted.Render("• "+choice))
				}
			}
		}
	}

	if cmd.Example != "" {
		examples = cmd.Example
	}
	if examples != "" {
		fmt.Fprintln(w, "\n "+t.Section.Render("EXAMPLES"))
		writeExamples(w, t, examples, cmd.Root().Name())
	}

	if cmd.HasSubCommands() {
		fmt.Fprintf(w, "\n Use \"%s [command] --help\" for more information.\n", cmd.CommandPath())
	}
}

// writeExamples renders example lines: comments muted, command lines colored
// by role (root command, subcommands, flags).
func writeExamples(w io.Writer, t *Theme, examples, root string) {
	rootStyle := lipgloss.NewStyle().Foreground(t.Colors.Cyan)
	subStyle := lipgloss.NewStyle().Foreground(t.Colors.Blue)
	flagStyle := lipgloss.NewStyle().Foreground(t.Colors.Violet)

	for _, line := range strings.Split(examples, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			fmt.Fprintln(w)
		case strings.HasPrefix(trimmed, "#"):
			fmt.Fprintln(w, " "+t.Muted.Render(trimmed))
		default:
			words := strings.Fields(trimmed)
			for i, word := range words {
				switch {
				case i == 0 && word == root:
					words[i] = rootStyle.Render(word)
				case strings.HasPrefix(word, "-"):
					words[i] = flagStyle.Render(word)
				case i > 0 && !strings.ContainsAny(word, "\"'/.~"):
					words[i] = subStyle.Render(word)
				}
			}
			fmt.Fprintln(w, " "+strings.Join(words, " "))
		}
	}
}

// flagName formats a flag as "-s, --name" or "    --name".
func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "    --" + f.Name
}

// splitChoices pulls an enumerated list out of a usage string of the form
// "Level: top, recursive, or all (default top)". Lists of fewer than three
// items are left inline.
func splitChoices(usage string) (string, []string) {
	colon := strings.Index(usage, ": ")
	if colon == -1 {
		return usage, nil
	}
	rest := usage[colon+2:]
	var suffix string
	if paren := strings.Index(rest, " ("); paren != -1 {
		rest, suffix = rest[:paren], rest[paren:]
	}
	parts := strings.Split(rest, ", ")
	if len(parts) < 3 {
		return usage, nil
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.TrimPrefix(p, "or "))
	}
	return usage[:colon+1] + suffix, parts
}
