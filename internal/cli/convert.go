package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uvburn/pkg/pipeline"
)

// generatedMarker starts the header comment of every Pipfile uvburn writes.
const generatedMarker = "# Generated by uvburn"

type convertOpts struct {
	inputOpts
	output string // output directory (default: project directory)
	force  bool   // overwrite a Pipfile uvburn did not write
	dryRun bool   // print instead of writing
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Write Pipfile and Pipfile.lock for a uv project",
		Long: `Write Pipfile and Pipfile.lock for a uv project.

Packages reachable from [project] dependencies go to "default", packages
reachable only from the selected dependency groups go to "develop", and
packages no root reaches are omitted with a warning.

An existing Pipfile is only replaced if uvburn wrote it, unless --force is
given. Index credentials are read from UV_INDEX_<NAME>_USERNAME and
UV_INDEX_<NAME>_PASSWORD and written as placeholders, never as values.`,
		Example: `  uvburn convert
  uvburn convert -p services/api -o build --group dev --group lint
  uvburn convert --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), cmd, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default: the project directory)")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing Pipfile not generated by uvburn")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the generated files instead of writing them")

	return cmd
}

// runConvert loads the project, runs the pipeline, and writes the outputs.
func (c *CLI) runConvert(ctx context.Context, cmd *cobra.Command, opts *convertOpts) error {
	in, err := opts.load(ctx)
	if err != nil {
		return err
	}
	popts, err := opts.options(ctx, cmd, in)
	if err != nil {
		return err
	}

	result, err := pipeline.NewRunner(c.Logger).Execute(ctx, in, popts)
	if err != nil {
		return err
	}

	if opts.dryRun {
		return printDryRun(cmd.OutOrStdout(), result)
	}

	dir := opts.output
	if dir == "" {
		dir = opts.project
	}
	pipfilePath := filepath.Join(dir, pipfileFile)
	lockPath := filepath.Join(dir, pipfileLockFile)

	if !opts.force {
		if err := checkOverwrite(pipfilePath); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeFileAtomic(pipfilePath, result.PipfileData); err != nil {
		return err
	}
	if err := writeFileAtomic(lockPath, result.LockData); err != nil {
		return err
	}

	printSuccess("Converted %s", in.Project.Metadata.Name)
	printFile(pipfilePath)
	printFile(lockPath)
	printStats(result.Stats)
	for _, w := range result.Orphans {
		printWarning("%s %s omitted: not reachable from any dependency group", w.Package, w.Version)
	}
	printNewline()
	printNextStep("Install", "pipenv sync --dev")

	return nil
}

// checkOverwrite refuses to replace a Pipfile that uvburn did not write.
func checkOverwrite(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", path, err)
	}
	defer f.Close()

	line, _ := bufio.NewReader(f).ReadString('\n')
	if strings.HasPrefix(line, generatedMarker) {
		return nil
	}
	return fmt.Errorf("%s exists and was not generated by %s (use --force to overwrite)", path, appName)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so a failed run never leaves a truncated lock behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printDryRun(w io.Writer, result *pipeline.Result) error {
	for _, f := range []struct {
		name string
		data []byte
	}{
		{pipfileFile, result.PipfileData},
		{pipfileLockFile, result.LockData},
	} {
		if _, err := fmt.Fprintf(w, "==> %s <==\n%s\n", f.name, f.data); err != nil {
			return err
		}
	}
	return nil
}
