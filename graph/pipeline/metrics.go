// Copyright 2021 The LegDB Authors. All rights reserved.
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

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_pipeline_evaluations_count",
		Help: "Number of evaluators created.",
	})
	mPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_pipeline_pages_count",
		Help: "Number of pages pulled from cursors.",
	})
	mBacktracks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_pipeline_backtracks_count",
		Help: "Number of times evaluation moved back to a previous stage.",
	})
	mResults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_pipeline_results_count",
		Help: "Number of entities yielded by evaluators.",
	})
	mErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legdb_pipeline_errors_count",
		Help: "Number of evaluations aborted by a cursor error.",
	})
)
