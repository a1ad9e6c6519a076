// i18ncompat — keeps MkDocs sites written for the old static-i18n plugin
// building with the current i18n plugin.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/i18ncompat/compat"
	"github.com/minios-linux/i18ncompat/i18n"
	"github.com/minios-linux/i18ncompat/i18nconfig"
	"github.com/minios-linux/i18ncompat/langmeta"
	"github.com/minios-linux/i18ncompat/mkdocsfile"
	"github.com/minios-linux/i18ncompat/plugin"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

// logOut receives all log lines; stdout is reserved for command output.
// Only log lines are colored, so useColor follows the log stream.
var logOut io.Writer = os.Stderr

var useColor = true

func paint(color, s string) string {
	if !useColor {
		return s
	}
	return color + s + colorReset
}

func logInfo(format string, args ...any) {
	fmt.Fprintf(logOut, paint(colorBlue, "[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(logOut, paint(colorGreen, "[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(logOut, paint(colorYellow, "[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(logOut, paint(colorRed, "[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

type globalFlags struct {
	configPath string
	uiLang     string
	noColor    bool
}

var globals globalFlags

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configPath, "config", "f", mkdocsfile.FileName, "Path to the MkDocs site configuration")
	fs.StringVar(&g.uiLang, "lang", "", "Language of command output (default: from environment)")
	fs.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "i18ncompat",
		Short: "Run legacy static-i18n MkDocs configurations on the current i18n plugin",
		Long: `i18ncompat — compatibility layer for the MkDocs i18n plugin.

Sites configured for the pre-1.0 static-i18n plugin declare languages as a
mapping keyed by locale plus a separate default_language key. The current
plugin expects an ordered list of language records. i18ncompat registers the
old plugin name, rewrites such options on load and hands them to the current
loader, so existing mkdocs.yml files keep working unchanged.

Commands:
  check      Load every i18n plugin entry and report its languages
  migrate    Rewrite legacy plugin options in mkdocs.yml
  plugins    List the plugin names that resolve to a loader`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init(globals.uiLang)
			useColor = !globals.noColor && isTerminal(os.Stderr)
		},
	}

	globals.register(root.PersistentFlags())

	root.AddCommand(
		newCheckCmd(),
		newMigrateCmd(),
		newPluginsCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "i18ncompat version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// plugins
// ---------------------------------------------------------------------------

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered plugin names",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, name := range plugin.Names() {
				if name == compat.Name {
					fmt.Fprintf(out, "%s\t%s\n", name, i18n.T("legacy schema, rewritten on load"))
					continue
				}
				fmt.Fprintln(out, name)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// check (read-only)
// ---------------------------------------------------------------------------

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load i18n plugin options and report the configured languages",
		Long: `Load every plugin entry of the site configuration that has a registered
loader, the same way a site build would, and print the resulting languages.

Legacy static-i18n options are rewritten in memory only; the file is not
modified. Exits with a non-zero status if any entry fails to load.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), globals.configPath)
		},
	}
}

func runCheck(out io.Writer, path string) error {
	f, err := mkdocsfile.ParseFile(path)
	if err != nil {
		return err
	}

	checked, failed := 0, 0
	for _, ref := range f.Plugins() {
		factory, ok := plugin.Lookup(ref.Name)
		if !ok {
			continue
		}
		checked++

		if compat.IsLegacy(ref.Options) {
			logWarning(i18n.T("Plugin %q uses the legacy languages mapping; run 'i18ncompat migrate' to update it"), ref.Name)
		} else if ref.Name == compat.Name {
			logInfo(i18n.T("Plugin is still referenced as %q; 'i18ncompat migrate --rename' switches it to %q"), compat.Name, plugin.Name)
		}

		// Clone: checking must not change what a later migrate sees.
		cfg, err := factory().LoadConfig(ref.Options.Clone(), f.Path)
		if err != nil {
			logError("%v", err)
			failed++
			continue
		}

		printLanguages(out, ref.Name, cfg)
		for _, l := range cfg.Languages {
			if _, known := langmeta.Lookup(l.Locale); !known {
				logWarning(i18n.T("Locale %q is not a known language code"), l.Locale)
			}
		}
	}

	if checked == 0 {
		return fmt.Errorf(i18n.T("No i18n plugin found in %s"), path)
	}
	if failed > 0 {
		return fmt.Errorf(i18n.N("%d plugin entry failed to load", "%d plugin entries failed to load", failed), failed)
	}
	logSuccess(i18n.N("%d plugin entry loaded", "%d plugin entries loaded", checked), checked)
	return nil
}

func printLanguages(out io.Writer, name string, cfg *i18nconfig.Config) {
	fmt.Fprintf(out, "\n%s (%s: %s)\n", name, i18n.T("docs structure"), cfg.DocsStructure)
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "%-10s %-24s %-6s %s\n", i18n.T("Locale"), i18n.T("Name"), i18n.T("Build"), i18n.T("Default"))

	for _, l := range cfg.Languages {
		build := i18n.T("no")
		if l.Build {
			build = i18n.T("yes")
		}
		def := ""
		if l.Default {
			def = "*"
		}
		label := l.Name
		if meta, ok := langmeta.Lookup(l.Locale); ok && meta.Flag != "" {
			label = meta.Flag + " " + label
		}
		fmt.Fprintf(out, "%-10s %-24s %-6s %s\n", l.Locale, label, build, def)
	}
	fmt.Fprintln(out)
}

// ---------------------------------------------------------------------------
// migrate (rewrites mkdocs.yml)
// ---------------------------------------------------------------------------

type migrateArgs struct {
	write  bool
	rename bool
}

func newMigrateCmd() *cobra.Command {
	var a migrateArgs

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite legacy static-i18n options into the current schema",
		Long: `Rewrite static-i18n plugin options that still use the languages mapping
into the current languages list, and validate the result.

By default the rewritten configuration is printed to stdout. Use --write to
replace the file in place (atomically), and --rename to also switch the
plugin entry from static-i18n to i18n.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.OutOrStdout(), globals.configPath, a)
		},
	}

	cmd.Flags().BoolVarP(&a.write, "write", "w", false, "Write the result back to the configuration file")
	cmd.Flags().BoolVar(&a.rename, "rename", false, "Rename static-i18n plugin entries to i18n")

	return cmd
}

func runMigrate(out io.Writer, path string, a migrateArgs) error {
	f, err := mkdocsfile.ParseFile(path)
	if err != nil {
		return err
	}

	changed := 0
	for _, ref := range f.Plugins() {
		if ref.Name != compat.Name && ref.Name != plugin.Name {
			continue
		}

		migrated := compat.Migrate(ref.Options)
		renamed := false
		if a.rename && ref.Name == compat.Name {
			if _, taken := f.Plugin(plugin.Name); taken {
				logWarning(i18n.T("Not renaming %q: the file already has an %q entry"), compat.Name, plugin.Name)
			} else {
				ref.Rename(plugin.Name)
				renamed = true
			}
		}
		if !migrated && !renamed {
			continue
		}

		if _, err := i18nconfig.Load(ref.Options.Clone(), f.Path); err != nil {
			return fmt.Errorf(i18n.T("migrated options do not load: %w"), err)
		}
		changed++
	}

	if changed == 0 {
		logInfo(i18n.T("Nothing to migrate in %s"), path)
		return nil
	}

	if !a.write {
		data, err := f.Marshal()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if err := f.WriteFile(path); err != nil {
		return err
	}
	logSuccess(i18n.N("Migrated %d plugin entry in %s", "Migrated %d plugin entries in %s", changed), changed, path)
	return nil
}
