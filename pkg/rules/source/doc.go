// Package source loads rule sets from disk or a Git repository and watches
// them for changes.
//
// A FileSource reads a single YAML rule file or every .yaml/.yml file below
// a directory, in lexical order, and merges them into one rules.RuleSet:
//
//	src := source.NewFileSource("rules/", logger)
//	set, err := src.Load(ctx)
//
// A FileWatcher triggers a debounced reload when rule files change:
//
//	w, err := source.NewFileWatcher("rules/", 100*time.Millisecond, logger)
//	go w.Watch(ctx, func(ctx context.Context) error {
//	    _, err := loader.Reload(ctx)
//	    return err
//	})
//
// A GitSource clones a repository on first Load and reads the rules at a
// path inside the clone. A GitWatcher pulls on an interval and reloads only
// when a pull changes a rule file under that path.
package source
