package netvar

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"netvardump/packages/Memory/logger"
)

// Target names the interface to resolve and the file to write.
type Target struct {
	Module    string
	Interface string
	Output    string
}

// Stats counts what a run produced. Dumped is the number of classes that had a
// table to write.
type Stats struct {
	Classes int
	Dumped  int
	Lines   int
	Elapsed time.Duration
}

// Run resolves the client interface, snapshots the class list and dumps every
// class that has a table to target.Output, replacing whatever was there.
// The first error ends the run; the output file is closed either way.
func Run(resolver Resolver, target Target, log logger.Logger) (Stats, []*ClassDescriptor, error) {
	var stats Stats
	start := time.Now()

	client, err := resolver.Resolve(target.Module, target.Interface)
	if err != nil {
		return stats, nil, fmt.Errorf("resolve %s in %s: %w", target.Interface, target.Module, err)
	}
	log.Debug("Resolved interface", "module", target.Module, "interface", target.Interface)

	classes, err := client.Classes()
	if err != nil {
		return stats, nil, fmt.Errorf("read class list: %w", err)
	}
	stats.Classes = len(classes)
	log.Debug("Snapshot taken", "classes", len(classes))

	if err := writeClasses(target.Output, classes, &stats); err != nil {
		return stats, classes, err
	}

	stats.Elapsed = time.Since(start)
	log.Info("Dumped netvars",
		"output", target.Output,
		"classes", stats.Classes,
		"tables", stats.Dumped,
		"lines", stats.Lines,
		"elapsed", stats.Elapsed.Round(time.Millisecond),
	)
	return stats, classes, nil
}

func writeClasses(path string, classes []*ClassDescriptor, stats *Stats) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	w := bufio.NewWriter(f)
	for _, class := range classes {
		if class == nil || class.Table == nil {
			continue
		}
		n, err := Dump(w, class.Table)
		stats.Lines += n
		if err != nil {
			return fmt.Errorf("dump %s: %w", class.Name, err)
		}
		stats.Dumped++
	}
	return w.Flush()
}
