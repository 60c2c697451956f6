// Copyright 2025 Jack Bister
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/zap"

	"github.com/jackbister/asclog/internal/config"
	"github.com/jackbister/asclog/internal/parser"
	"github.com/jackbister/asclog/internal/sources"
	"github.com/jackbister/asclog/internal/store"
	"github.com/jackbister/asclog/internal/watcher"
	"github.com/jackbister/asclog/internal/web"

	_ "github.com/mattn/go-sqlite3"
)

var versionString string // This must be set using -ldflags "-X main.versionString=<version>" when building for --version to work

var cfgFileFlag string
var databaseFileFlag string
var watchFlag string
var webAddrFlag string
var serveFlag bool
var noRawFlag bool
var keepOutOfBlockFlag bool
var printVersion bool

func main() {
	flag.StringVar(&cfgFileFlag, "config", "asclog.json", "The name of the file containing the configuration for asclog. If the file does not exist, defaults and command line flags are used.")
	flag.StringVar(&databaseFileFlag, "dbfile", "asclog.db", "The name of the sqlite file in which asclog will store parsed recordings. If the name ':memory:' is used, no file will be created and everything will be stored in memory.")
	flag.StringVar(&watchFlag, "watch", "", "A glob pattern of recording files to watch. New files matching the pattern will be ingested as they appear. Watching is off by default.")
	flag.StringVar(&webAddrFlag, "webaddr", ":8080", "The address on which the recordings API will be exposed when -serve is given.")
	flag.BoolVar(&serveFlag, "serve", false, "Expose the parsed recordings over an HTTP API.")
	flag.BoolVar(&noRawFlag, "noraw", false, "Skip raw sample lines entirely. Event tables are always imported. Saves most of the memory and database size for event-only analyses.")
	flag.BoolVar(&keepOutOfBlockFlag, "keepoob", false, "Keep records which occur outside any recording block. Such records get a half-integer block index (the previous block plus 0.5). By default they are dropped.")
	flag.BoolVar(&printVersion, "version", false, "Print version info and quit.")
	flag.Parse()

	if printVersion {
		if versionString == "" {
			fmt.Println("(unknown version)")
			return
		}
		fmt.Println(versionString)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "got error when creating logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load(cfgFileFlag, logger)
	if err != nil {
		logger.Error("got error when loading config", slog.Any("error", err))
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dbfile":
			cfg.DatabaseFile = databaseFileFlag
		case "watch":
			cfg.WatchGlob = watchFlag
		case "webaddr":
			cfg.HttpAddr = webAddrFlag
		case "serve":
			cfg.EnableWeb = serveFlag
		case "noraw":
			cfg.ImportSamples = !noRawFlag
		case "keepoob":
			cfg.RetainOutOfBlock = keepOutOfBlockFlag
		}
	})

	if len(flag.Args()) == 0 && cfg.WatchGlob == "" && !cfg.EnableWeb {
		fmt.Fprintln(os.Stderr, "nothing to do: no recording files given, no -watch pattern and no -serve")
		flag.Usage()
		os.Exit(1)
	}

	db, err := sql.Open("sqlite3", cfg.DatabaseFile)
	if err != nil {
		logger.Error("got error when opening database",
			slog.String("fileName", cfg.DatabaseFile), slog.Any("error", err))
		os.Exit(1)
	}
	repo, err := store.NewSqliteRepository(db, zapLogger.Named("SqliteRepository"))
	if err != nil {
		logger.Error("got error when creating repository", slog.Any("error", err))
		os.Exit(1)
	}

	p := &parser.Parser{
		Opts: parser.Options{
			RetainOutOfBlock: cfg.RetainOutOfBlock,
			ImportSamples:    cfg.ImportSamples,
		},
		Logger: logger,
	}
	ingest := func(path string) error {
		rc, err := sources.Open(path)
		if err != nil {
			return err
		}
		defer rc.Close()
		res, err := p.Parse(rc)
		if err != nil {
			return fmt.Errorf("error parsing %s: %w", path, err)
		}
		id, err := repo.Add(path, res)
		if err != nil {
			return fmt.Errorf("error storing %s: %w", path, err)
		}
		logger.Info("ingested recording",
			slog.String("fileName", path),
			slog.String("id", id),
			slog.Int("anomalies", res.Anomalies.Total()))
		return nil
	}

	failed := 0
	for _, path := range flag.Args() {
		if err := ingest(path); err != nil {
			logger.Error("got error when ingesting recording",
				slog.String("fileName", path), slog.Any("error", err))
			failed++
		}
	}

	ctx := context.Background()
	if cfg.WatchGlob != "" {
		gw, err := watcher.NewGlobWatcher(cfg.WatchGlob, ingest, ctx, zapLogger.Named("GlobWatcher"))
		if err != nil {
			logger.Error("got error when creating watcher",
				slog.String("glob", cfg.WatchGlob), slog.Any("error", err))
			os.Exit(1)
		}
		defer gw.Cancel()
	}

	if cfg.EnableWeb {
		w := web.NewWeb(cfg, repo, logger)
		if err := w.Serve(); err != nil {
			logger.Error("got error from web server", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if cfg.WatchGlob != "" {
		select {}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
