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

// Package metrics instruments the four passes the way the teacher's
// core/vm/metrics.go instruments the interpreter loop: a small package-level
// var block of github.com/ethereum/go-ethereum/metrics registered counters,
// one per observable outcome a pass can produce. The four passes themselves
// stay free of this package (§7: "the core emits no I/O"); only the CLI
// driver calls Record* after each pass returns its result struct.
//
// Unlike the interpreter's opcodeCount/optimizedCodeCount pair, a fixpoint
// driver running four passes over many methods benefits from a live
// scrape surface too, so the same counts are mirrored into a
// prometheus/client_golang GaugeVec (grounded on
// kubernetes/pkg/controller/node/metrics.go's NewGaugeVec/MustRegister
// pattern) and exposed for the CLI's --metrics-addr flag via Handler.
package metrics

import (
	"net/http"

	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// enableCounters switches go-ethereum metrics collection on before the
// counters below are created; otherwise they would be no-op NilCounters.
var _ = enableCounters()

func enableCounters() bool {
	gethmetrics.Enabled = true
	return true
}

var (
	copyPropRewrites = gethmetrics.NewRegisteredCounter("localopt/copyprop/rewrites", nil)

	staleStoresRemoved  = gethmetrics.NewRegisteredCounter("localopt/deadstore/staleStoresRemoved", nil)
	intrinsicsRewritten = gethmetrics.NewRegisteredCounter("localopt/deadstore/intrinsicsRewritten", nil)
	callsInlined        = gethmetrics.NewRegisteredCounter("localopt/deadstore/callsInlined", nil)

	pushPopChanges = gethmetrics.NewRegisteredCounter("localopt/pushpop/changes", nil)
	castsAdded     = gethmetrics.NewRegisteredCounter("localopt/pushpop/castsAdded", nil)
	nullChecks     = gethmetrics.NewRegisteredCounter("localopt/pushpop/nullChecksAdded", nil)

	storeLoadPairsRemoved = gethmetrics.NewRegisteredCounter("localopt/storeload/pairsRemoved", nil)

	methodsProcessed = gethmetrics.NewRegisteredCounter("localopt/driver/methodsProcessed", nil)
	fixpointRounds   = gethmetrics.NewRegisteredCounter("localopt/driver/fixpointRounds", nil)
)

// eliminations is the scrape-facing mirror of the counters above, one gauge
// per pass/outcome label rather than one metric per variable, so a single
// query ("sum by (outcome)") covers every pass.
var eliminations = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "localopt",
	Name:      "eliminations_total",
	Help:      "Cumulative count of pass runs that produced each outcome, by pass and outcome.",
}, []string{"pass", "outcome"})

func init() {
	prometheus.MustRegister(eliminations)
}

// RecordCopyProp records the outcome of one CopyPropagate call (pass A).
func RecordCopyProp(rewritten bool) {
	if !rewritten {
		return
	}
	copyPropRewrites.Inc(1)
	eliminations.WithLabelValues("copyprop", "rewrite").Inc()
}

// StaleStoreResult mirrors localopt.StaleStoreResult's three boolean
// outcomes without importing package localopt, keeping metrics a leaf
// package the way the teacher's core/vm/metrics.go is a leaf of core/vm.
type StaleStoreResult struct {
	StaleStoreRemoved  bool
	IntrinsicRewritten bool
	CallInlined        bool
}

// RecordStaleStore records the outcome of one EliminateStaleStores call (pass B).
func RecordStaleStore(r StaleStoreResult) {
	if r.StaleStoreRemoved {
		staleStoresRemoved.Inc(1)
		eliminations.WithLabelValues("deadstore", "stale_store_removed").Inc()
	}
	if r.IntrinsicRewritten {
		intrinsicsRewritten.Inc(1)
		eliminations.WithLabelValues("deadstore", "intrinsic_rewritten").Inc()
	}
	if r.CallInlined {
		callsInlined.Inc(1)
		eliminations.WithLabelValues("deadstore", "call_inlined").Inc()
	}
}

// PushPopResult mirrors localopt.PushPopResult; see StaleStoreResult.
type PushPopResult struct {
	PushPopChanged bool
	CastAdded      bool
	NullCheckAdded bool
}

// RecordPushPop records the outcome of one EliminatePushPop call (pass C).
func RecordPushPop(r PushPopResult) {
	if r.PushPopChanged {
		pushPopChanges.Inc(1)
		eliminations.WithLabelValues("pushpop", "changed").Inc()
	}
	if r.CastAdded {
		castsAdded.Inc(1)
		eliminations.WithLabelValues("pushpop", "cast_added").Inc()
	}
	if r.NullCheckAdded {
		nullChecks.Inc(1)
		eliminations.WithLabelValues("pushpop", "null_check_added").Inc()
	}
}

// RecordStoreLoad records the outcome of one EliminateStoreLoadPairs call (pass D).
func RecordStoreLoad(changed bool) {
	if !changed {
		return
	}
	storeLoadPairsRemoved.Inc(1)
	eliminations.WithLabelValues("storeload", "pair_removed").Inc()
}

// RecordMethodProcessed records that the driver ran its fixpoint loop over
// one more method.
func RecordMethodProcessed() {
	methodsProcessed.Inc(1)
}

// RecordFixpointRound records one more pass-over-the-method round within the
// driver's fixpoint loop, so a stuck (non-terminating) method shows up as an
// outlier in fixpointRounds relative to methodsProcessed.
func RecordFixpointRound() {
	fixpointRounds.Inc(1)
}

// Handler returns the HTTP handler the CLI driver mounts at its
// --metrics-addr flag's /metrics path, scraping the prometheus/client_golang
// registry populated by the Record* functions above.
func Handler() http.Handler {
	return promhttp.Handler()
}
