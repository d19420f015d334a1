// Copyright 2024 The Rapier Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Rapier is a compile-time configuration-injection tool. It scans
// packages for component declarations and writes modules that supply
// their configuration from environment variables, command-line
// arguments, and AWS SSM parameters.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aleph0io/rapier-go/internal/rapier"
)

const usage = "usage: rapier [gen] [PKG...] | rapier check [PKG...] | rapier watch [PKG...]"

// version is stamped by the release build.
var version = "devel"

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rapier:", err)
		os.Exit(1)
	}
	defer log.Sync()

	switch {
	case len(os.Args) == 2 && (os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "-help" || os.Args[1] == "--help"):
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(0)
	case len(os.Args) == 1 || len(os.Args) == 2 && os.Args[1] == "gen":
		err = generate(log, []string{"."})
	case len(os.Args) > 2 && os.Args[1] == "gen":
		err = generate(log, os.Args[2:])
	case len(os.Args) == 2 && os.Args[1] == "check":
		err = check(log, []string{"."})
	case len(os.Args) > 2 && os.Args[1] == "check":
		err = check(log, os.Args[2:])
	case len(os.Args) == 2 && os.Args[1] == "watch":
		err = watch(log, []string{"."})
	case len(os.Args) > 2 && os.Args[1] == "watch":
		err = watch(log, os.Args[2:])
	case len(os.Args) == 2:
		err = generate(log, []string{os.Args[1]})
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(64)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "rapier:", err)
		os.Exit(1)
	}
}

// fileConfig is the optional .rapier.yaml in the working directory.
type fileConfig struct {
	URL      string   `yaml:"url"`
	Tags     string   `yaml:"tags"`
	Patterns []string `yaml:"patterns"`
}

const configName = ".rapier.yaml"

func loadFileConfig(dir string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(filepath.Join(dir, configName))
	if os.IsNotExist(err) {
		return fc, nil
	}
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("%s: %v", configName, err)
	}
	return fc, nil
}

func buildConfig(wd string) (rapier.Config, []string, error) {
	fc, err := loadFileConfig(wd)
	if err != nil {
		return rapier.Config{}, nil, err
	}
	cfg := rapier.Config{
		Version: version,
		URL:     fc.URL,
		Tags:    fc.Tags,
		Dir:     wd,
		Env:     os.Environ(),
	}
	return cfg, fc.Patterns, nil
}

// run generates every matched package and returns the results, with
// patterns from the config file used when the command line gives
// none beyond the default.
func run(log *zap.Logger, patterns []string) ([]rapier.GenerateResult, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, cfgPatterns, err := buildConfig(wd)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 1 && patterns[0] == "." && len(cfgPatterns) > 0 {
		patterns = cfgPatterns
	}
	results, errs := rapier.Generate(context.Background(), cfg, patterns)
	if len(errs) > 0 {
		logErrors(log, errs)
		return nil, fmt.Errorf("generate failed")
	}
	return results, nil
}

// generate runs the gen subcommand, writing a rapier_gen.go next to
// each package that declares components.
func generate(log *zap.Logger, patterns []string) error {
	results, err := run(log, patterns)
	if err != nil {
		return err
	}
	success := true
	for _, res := range results {
		if len(res.Errs) > 0 {
			logErrors(log, res.Errs)
			log.Error("generate failed", zap.String("package", res.PkgPath))
			success = false
			continue
		}
		if len(res.Content) == 0 {
			continue
		}
		if err := res.Commit(func(path string, data []byte) error {
			return os.WriteFile(path, data, 0o666)
		}); err != nil {
			log.Error("write failed", zap.String("output", res.OutputPath), zap.Error(err))
			success = false
			continue
		}
		log.Info("wrote", zap.String("output", res.OutputPath))
	}
	if !success {
		return fmt.Errorf("at least one generate failure")
	}
	return nil
}

// check regenerates in memory and reports packages whose
// rapier_gen.go on disk is missing or stale, without writing.
func check(log *zap.Logger, patterns []string) error {
	results, err := run(log, patterns)
	if err != nil {
		return err
	}
	success := true
	for _, res := range results {
		if len(res.Errs) > 0 {
			logErrors(log, res.Errs)
			log.Error("check failed", zap.String("package", res.PkgPath))
			success = false
			continue
		}
		if len(res.Content) == 0 {
			continue
		}
		existing, err := os.ReadFile(res.OutputPath)
		if err != nil {
			log.Error("missing generated file", zap.String("output", res.OutputPath))
			success = false
			continue
		}
		if !bytes.Equal(existing, res.Content) {
			log.Error("generated file is stale", zap.String("output", res.OutputPath))
			success = false
		}
	}
	if !success {
		return fmt.Errorf("at least one check failure")
	}
	return nil
}

// watchDebounce batches bursts of file events into one regeneration.
const watchDebounce = 250 * time.Millisecond

// watch regenerates whenever a Go source file under the working tree
// changes. Generated files and hidden, vendor, and testdata
// directories are ignored.
func watch(log *zap.Logger, patterns []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = filepath.WalkDir(wd, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != wd && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return err
	}

	if err := generate(log, patterns); err != nil {
		log.Error("initial generate failed", zap.Error(err))
	}
	log.Info("watching", zap.String("dir", wd))

	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".go") || filepath.Base(ev.Name) == "rapier_gen.go" {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, func() { pending <- struct{}{} })
			} else {
				timer.Reset(watchDebounce)
			}
		case <-pending:
			timer = nil
			log.Info("change detected, regenerating")
			if err := generate(log, patterns); err != nil {
				log.Error("generate failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", zap.Error(err))
		}
	}
}

func logErrors(log *zap.Logger, errs []error) {
	for _, err := range errs {
		log.Error(strings.Replace(err.Error(), "\n", "\n\t", -1))
	}
}
