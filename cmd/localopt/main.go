// Copyright 2025 The bytecode-localopt Authors
// This file is part of the bytecode-localopt library.
//
// The bytecode-localopt library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bytecode-localopt library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bytecode-localopt library. If not, see <http://www.gnu.org/licenses/>.

// Command localopt runs the four peephole passes to a fixpoint over a small
// set of built-in demo methods, the way cmd/geth's snapshot subcommand
// wraps a core algorithm in an urfave/cli/v2 app (grounded on
// cmd/geth/snapshot.go's cli.App/cli.Command shape).
package main

import (
	"fmt"
	"net/http"
	"os"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ArthurS1/bytecode-localopt/bytecode"
	"github.com/ArthurS1/bytecode-localopt/cachekit"
	"github.com/ArthurS1/bytecode-localopt/external"
	"github.com/ArthurS1/bytecode-localopt/internal/xlog"
	"github.com/ArthurS1/bytecode-localopt/localopt"
	"github.com/ArthurS1/bytecode-localopt/metrics"
)

var (
	diagnosticsFlag = &cli.BoolFlag{
		Name:  "diagnostics",
		Usage: "log a textified before/after listing for every changed method",
	}
	maxRoundsFlag = &cli.IntFlag{
		Name:  "max-rounds",
		Usage: "fixpoint round cap per method, guarding against a non-terminating oscillation",
		Value: 32,
	}
	allowSkipClassLoadingFlag = &cli.BoolFlag{
		Name:  "allow-skip-class-loading",
		Usage: "permit pass C to drop class/type LDC constants outright instead of a preserving pop",
	}
	allowSkipModuleInitFlag = &cli.BoolFlag{
		Name:  "allow-skip-module-init",
		Usage: "permit pass C to drop a module-load GETSTATIC known safe to skip",
	}
	noCacheFlag = &cli.BoolFlag{
		Name:  "no-cache",
		Usage: "recompute every method's fixpoint instead of reusing a cached result",
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "if set, serve Prometheus metrics at http://<addr>/metrics until the run completes",
	}
)

func main() {
	gethlog.SetDefault(gethlog.NewLogger(gethlog.NewTerminalHandlerWithLevel(os.Stderr, gethlog.LevelInfo, true)))

	app := &cli.App{
		Name:  "localopt",
		Usage: "run the copy-propagation / stale-store / push-pop / store-load-pair passes over demo methods to a fixpoint",
		Flags: []cli.Flag{
			diagnosticsFlag, maxRoundsFlag,
			allowSkipClassLoadingFlag, allowSkipModuleInitFlag,
			noCacheFlag, metricsAddrFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	xlog.SetDiagnostics(c.Bool(diagnosticsFlag.Name))

	if addr := c.String(metricsAddrFlag.Name); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				gethlog.Warn("metrics server stopped", "err", err)
			}
		}()
		gethlog.Info("serving metrics", "addr", addr)
		defer srv.Close()
	}

	cfg := &external.Config{
		OptAllowSkipClassLoading:       c.Bool(allowSkipClassLoadingFlag.Name),
		ModulesAllowSkipInitialization: c.Bool(allowSkipModuleInitFlag.Name),
		MaxAliasingInstructions:        1 << 16,
		MaxAliasingLocals:              1 << 12,
		MaxSourceValueInstructions:     1 << 16,
	}
	configTag := fmt.Sprintf("skipClassLoading=%v,skipModuleInit=%v",
		cfg.OptAllowSkipClassLoading, cfg.ModulesAllowSkipInitialization)

	cache := cachekit.New(256, 8)
	maxRounds := c.Int(maxRoundsFlag.Name)

	for _, fx := range fixtures() {
		before := fx.method.Textify()

		if !c.Bool(noCacheFlag.Name) {
			if cached, ok := cache.Get(cachekit.Key{MethodText: before, ConfigTag: configTag}); ok {
				fmt.Printf("=== %s.%s (cached) ===\n%s\n", fx.owner, fx.method.Name, cached)
				continue
			}
		}

		cg := newLogCallGraph()
		runToFixpoint(fx.owner, fx.method, cg, noopInliner{}, cfg, maxRounds)
		metrics.RecordMethodProcessed()

		after := fx.method.Textify()
		if xlog.DiagnosticsEnabled() {
			gethlog.Debug("fixpoint converged", "method", fx.owner+"."+fx.method.Name, "before", before, "after", after)
		}
		fmt.Printf("=== %s.%s ===\n%s\n", fx.owner, fx.method.Name, after)

		if !c.Bool(noCacheFlag.Name) {
			cache.Put(cachekit.Key{MethodText: before, ConfigTag: configTag}, after)
		}
	}
	return nil
}

// runToFixpoint runs the four passes in order — (A) copy propagation, (B)
// stale-store elimination, (C) push/pop elimination, (D) store/load pair
// elimination — repeating until a full round makes no change or maxRounds is
// hit, per §6's "the driver may re-run passes until no pass reports a
// change" fixpoint contract.
func runToFixpoint(owner string, m *bytecode.Method, cg external.CallGraph, inl external.Inliner, cfg *external.Config, maxRounds int) {
	for round := 0; round < maxRounds; round++ {
		metrics.RecordFixpointRound()
		changed := false

		if localopt.CopyPropagate(m) {
			metrics.RecordCopyProp(true)
			changed = true
		}

		staleResult, err := localopt.EliminateStaleStores(m, cg, inl, cfg, owner)
		if err != nil {
			gethlog.Warn("stale-store pass failed", "owner", owner, "method", m.Name, "err", err)
		} else if staleResult.Changed() {
			metrics.RecordStaleStore(metrics.StaleStoreResult(staleResult))
			changed = true
		}

		pushPopResult := localopt.EliminatePushPop(m, cg, cfg)
		if pushPopResult.Changed() {
			metrics.RecordPushPop(metrics.PushPopResult(pushPopResult))
			changed = true
		}

		if localopt.EliminateStoreLoadPairs(m) {
			metrics.RecordStoreLoad(true)
			changed = true
		}

		if !changed {
			return
		}
	}
	gethlog.Warn("fixpoint did not converge within max-rounds", "owner", owner, "method", m.Name, "maxRounds", maxRounds)
}
