package main

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"bukukas/pkg/csvio"
)

// watchImportDir bulk-imports every CSV file dropped into dir. Files present
// at startup are imported first, then new ones as they appear. Processed
// files are moved into a done/ subdirectory so they are never imported twice.
func watchImportDir(dir string) {
	doneDir := filepath.Join(dir, "done")
	if err := os.MkdirAll(doneDir, 0755); err != nil {
		log.Printf("import watcher: cannot create %s: %v", doneDir, err)
		return
	}

	for _, name := range listCSVFiles(dir) {
		importFile(dir, name)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("import watcher: %v", err)
		return
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		log.Printf("import watcher: %v", err)
		return
	}
	log.Printf("Watching %s for CSV imports (debounced) ...", dir)

	// simple debounce map of pending files
	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				name := filepath.Base(ev.Name)
				if !isCSVFile(name) {
					continue
				}
				pending[name] = time.Now()
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > 300*time.Millisecond { // stable
					delete(pending, name)
					importFile(dir, name)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// importFile runs one CSV through the same sequential create path as the
// upload endpoint, then moves it aside.
func importFile(dir, name string) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		log.Printf("import %s: %v", name, err)
		return
	}
	rows, err := csvio.Read(f)
	f.Close()
	if err != nil {
		log.Printf("import %s: %v", name, err)
		return
	}
	inserted := 0
	for _, row := range rows {
		if _, err := ledgerSvc.Create(row.Transaction()); err == nil {
			inserted++
		}
	}
	log.Printf("import %s: %d/%d transactions inserted", name, inserted, len(rows))
	if err := os.Rename(path, filepath.Join(dir, "done", name)); err != nil {
		log.Printf("import %s: move to done failed: %v", name, err)
	}
}

func listCSVFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isCSVFile(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isCSVFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
