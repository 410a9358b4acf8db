// Package scaffold writes a starter prfkit project: a commented
// .prfkit/config.yaml and a few example trees to evaluate and step through.
package scaffold

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

//go:embed templates
var templateFS embed.FS

// Options configures a scaffold run.
type Options struct {
	Dir          string // Project directory (defaults to ".")
	DryRun       bool
	Force        bool
	SkipExamples bool
	Writer       io.Writer // Output writer (defaults to os.Stdout)
}

// File is one file the scaffold installs.
type File struct {
	Path    string // Relative to the project directory
	Content string
}

// Result contains the outcome of a scaffold run.
type Result struct {
	TargetDir   string
	Created     []string
	Overwritten []string
	Skipped     []string
	Unchanged   []string
}

// FileStatus is the state of one file on disk relative to its template.
type FileStatus struct {
	Path      string
	Exists    bool
	Unchanged bool
	Diff      string // Unified diff when the file exists and differs
}

// Files returns the files to install. The config always comes first.
func Files(skipExamples bool) []File {
	files := []File{{
		Path:    filepath.Join(".prfkit", "config.yaml"),
		Content: mustReadTemplate("config.yaml"),
	}}
	if skipExamples {
		return files
	}

	names, err := fs.Glob(templateFS, "templates/examples/*.yaml")
	if err != nil {
		panic("listing embedded examples: " + err.Error())
	}
	sort.Strings(names)
	for _, name := range names {
		files = append(files, File{
			Path:    filepath.Join("examples", path.Base(name)),
			Content: mustReadTemplate("examples/" + path.Base(name)),
		})
	}
	return files
}

func mustReadTemplate(name string) string {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic("failed to read embedded template: " + err.Error())
	}
	return string(data)
}

// Run installs the scaffold. Existing files that differ are left alone and
// reported with a diff unless Force is set.
func Run(opts Options) (*Result, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}

	files := Files(opts.SkipExamples)
	statuses := CheckStatuses(opts.Dir, files)

	if opts.DryRun {
		return showDryRun(opts.Writer, opts.Dir, files, statuses), nil
	}

	if !opts.Force {
		for _, s := range statuses {
			if s.Exists && !s.Unchanged {
				return showChanges(opts.Writer, opts.Dir, statuses)
			}
		}
	}
	return install(opts.Writer, opts.Dir, files, statuses)
}

// CheckStatuses compares each file with what is already under dir.
func CheckStatuses(dir string, files []File) []FileStatus {
	statuses := make([]FileStatus, 0, len(files))
	for _, f := range files {
		status := FileStatus{Path: f.Path}
		existing, err := os.ReadFile(filepath.Join(dir, f.Path))
		if err == nil {
			status.Exists = true
			if string(existing) == f.Content {
				status.Unchanged = true
			} else {
				status.Diff = UnifiedDiff("existing", "new", string(existing), f.Content)
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func showDryRun(w io.Writer, dir string, files []File, statuses []FileStatus) *Result {
	_, _ = fmt.Fprintln(w, "DRY RUN - No changes will be made")
	_, _ = fmt.Fprintln(w)

	result := &Result{TargetDir: dir}
	for i, f := range files {
		p := filepath.Join(dir, f.Path)
		s := statuses[i]
		switch {
		case s.Unchanged:
			_, _ = fmt.Fprintf(w, "Already up to date: %s\n", p)
			result.Unchanged = append(result.Unchanged, f.Path)
		case s.Exists:
			_, _ = fmt.Fprintf(w, "Would overwrite (has changes): %s\n", p)
			_, _ = fmt.Fprintln(w, s.Diff)
			result.Skipped = append(result.Skipped, f.Path)
		default:
			_, _ = fmt.Fprintf(w, "Would create: %s\n", p)
			result.Created = append(result.Created, f.Path)
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Run without --dry-run to apply changes.")
	return result
}

func showChanges(w io.Writer, dir string, statuses []FileStatus) (*Result, error) {
	result := &Result{TargetDir: dir}

	_, _ = fmt.Fprintln(w, "The following files have changes:")
	_, _ = fmt.Fprintln(w)
	for _, s := range statuses {
		if s.Exists && !s.Unchanged {
			_, _ = fmt.Fprintf(w, "%s:\n", filepath.Join(dir, s.Path))
			_, _ = fmt.Fprintln(w, s.Diff)
			result.Skipped = append(result.Skipped, s.Path)
		}
	}

	_, _ = fmt.Fprintln(w, "Use --force to overwrite changed files.")
	return result, fmt.Errorf("files have changes (use --force to overwrite)")
}

func install(w io.Writer, dir string, files []File, statuses []FileStatus) (*Result, error) {
	result := &Result{TargetDir: dir}

	for i, f := range files {
		p := filepath.Join(dir, f.Path)
		s := statuses[i]
		if s.Unchanged {
			result.Unchanged = append(result.Unchanged, f.Path)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return result, fmt.Errorf("create directory %s: %w", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(f.Content), 0644); err != nil {
			return result, fmt.Errorf("write %s: %w", p, err)
		}

		if s.Exists {
			_, _ = fmt.Fprintf(w, "Overwrote: %s\n", p)
			result.Overwritten = append(result.Overwritten, f.Path)
		} else {
			_, _ = fmt.Fprintf(w, "Created: %s\n", p)
			result.Created = append(result.Created, f.Path)
		}
	}

	if len(result.Created) == 0 && len(result.Overwritten) == 0 {
		_, _ = fmt.Fprintln(w, "prfkit project is already up to date.")
	}
	return result, nil
}
