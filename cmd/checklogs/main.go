// Command checklogs inspects the application log without launching the full
// app: health summary, recent errors, system events, tail, and host
// diagnostics.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

type options struct {
	errors  bool
	system  bool
	all     bool
	tail    int
	count   int
	logPath string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts := &options{}
	cmd := newRootCmd(os.Stdout, opts)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func newRootCmd(out io.Writer, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "checklogs",
		Short:         "Inspect the Daisho application log",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(out, *opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.errors, "errors", "e", false, "show recent error entries")
	cmd.Flags().BoolVarP(&opts.system, "system", "s", false, "show system events and host diagnostics")
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "show everything")
	cmd.Flags().IntVarP(&opts.tail, "tail", "t", 0, "show last N log entries")
	cmd.Flags().IntVarP(&opts.count, "count", "c", 20, "number of entries per section")
	cmd.Flags().StringVar(&opts.logPath, "file", "", "log file path (default logs/daisho.log)")
	return cmd
}

func runWithOptions(out io.Writer, opts options) error {
	path := opts.logPath
	if path == "" {
		path = logutil.Path()
	}

	if !opts.errors && !opts.system && !opts.all && opts.tail == 0 {
		return showHealth(out, path)
	}

	if opts.all || opts.system {
		showDiagnostics(out)
		if err := showFiltered(out, path, "SYSTEM EVENTS", opts.count, logutil.LevelSystem); err != nil {
			return err
		}
	}
	if opts.all {
		if err := showHealth(out, path); err != nil {
			return err
		}
	}
	if opts.all || opts.errors {
		if err := showFiltered(out, path, "RECENT ERRORS", opts.count, logutil.LevelError); err != nil {
			return err
		}
	}
	if opts.tail > 0 {
		if err := showTail(out, path, opts.tail); err != nil {
			return err
		}
	}
	return nil
}

func header(out io.Writer, title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, " %s\n", title)
	fmt.Fprintln(out, strings.Repeat("=", 60))
}

func showHealth(out io.Writer, path string) error {
	header(out, "LOG HEALTH SUMMARY")

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintln(out, "Log file does not exist yet.")
		fmt.Fprintf(out, "Expected location: %s\n", path)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Log file: %s\n", path)
	fmt.Fprintf(out, "Size: %.1f KB\n", float64(info.Size())/1024)
	fmt.Fprintf(out, "Last modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	counts := map[logutil.Level]int{}
	if err := eachLine(path, func(line string) {
		if level, ok := logutil.ParseLevel(line); ok {
			counts[level]++
		}
	}); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Entry counts:")
	fmt.Fprintf(out, "  Errors:  %d\n", counts[logutil.LevelError])
	fmt.Fprintf(out, "  System:  %d\n", counts[logutil.LevelSystem])
	fmt.Fprintf(out, "  Info:    %d\n", counts[logutil.LevelInfo])
	fmt.Fprintf(out, "  Debug:   %d\n", counts[logutil.LevelDebug])
	if counts[logutil.LevelError] > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "There are errors in the log. Use --errors to view them.")
	}
	return nil
}

func showFiltered(out io.Writer, path, title string, count int, level logutil.Level) error {
	header(out, fmt.Sprintf("%s (last %d)", title, count))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "Log file does not exist.")
		return nil
	}

	var matched []string
	if err := eachLine(path, func(line string) {
		if l, ok := logutil.ParseLevel(line); ok && l == level {
			matched = append(matched, line)
		}
	}); err != nil {
		return err
	}

	if len(matched) == 0 {
		fmt.Fprintf(out, "No %s entries found.\n", level)
		return nil
	}
	for _, line := range lastN(matched, count) {
		fmt.Fprintln(out, line)
	}
	return nil
}

func showTail(out io.Writer, path string, count int) error {
	header(out, fmt.Sprintf("LAST %d LOG ENTRIES", count))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "Log file does not exist.")
		return nil
	}

	var lines []string
	if err := eachLine(path, func(line string) {
		lines = append(lines, line)
	}); err != nil {
		return err
	}
	for _, line := range lastN(lines, count) {
		fmt.Fprintln(out, line)
	}
	return nil
}

func showDiagnostics(out io.Writer) {
	header(out, "SYSTEM DIAGNOSTICS")

	fmt.Fprintln(out, "Platform Information:")
	fmt.Fprintf(out, "  OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "  CPUs: %d\n", runtime.NumCPU())
	fmt.Fprintf(out, "  Go: %s\n", runtime.Version())
	fmt.Fprintf(out, "  Time: %s\n", time.Now().Format("2006-01-02 15:04:05"))

	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Memory:")
		fmt.Fprintf(out, "  Total: %.1f GB\n", float64(vm.Total)/(1<<30))
		fmt.Fprintf(out, "  Available: %.1f GB\n", float64(vm.Available)/(1<<30))
		fmt.Fprintf(out, "  Used: %.0f%%\n", vm.UsedPercent)
	}
}

func eachLine(path string, fn func(string)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	return scanner.Err()
}

func lastN(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
