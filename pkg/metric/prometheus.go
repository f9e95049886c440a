// Copyright 2026 The Devlock Authors.
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

package metric

import (
	"fmt"
	"io"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// PrometheusName converts a registered metric name such as "/devlock/waits"
// into a Prometheus metric name, e.g. "prefix_devlock_waits".
func PrometheusName(prefix, name string) string {
	n := strings.ReplaceAll(strings.TrimPrefix(name, "/"), "/", "_")
	if prefix == "" {
		return n
	}
	return prefix + "_" + n
}

func (m customUint64Metric) family(prefix string) *dto.MetricFamily {
	typ := dto.MetricType_GAUGE
	if m.cumulative {
		typ = dto.MetricType_COUNTER
	}
	mf := &dto.MetricFamily{
		Name: proto.String(PrometheusName(prefix, m.name)),
		Help: proto.String(m.description),
		Type: typ.Enum(),
	}
	sample := func(v uint64, labels []*dto.LabelPair) *dto.Metric {
		pm := &dto.Metric{Label: labels}
		if m.cumulative {
			pm.Counter = &dto.Counter{Value: proto.Float64(float64(v))}
		} else {
			pm.Gauge = &dto.Gauge{Value: proto.Float64(float64(v))}
		}
		return pm
	}
	if m.field == nil {
		mf.Metric = append(mf.Metric, sample(m.value(), nil))
		return mf
	}
	for _, fv := range m.field.allowedValues {
		labels := []*dto.LabelPair{{
			Name:  proto.String(m.field.name),
			Value: proto.String(fv),
		}}
		mf.Metric = append(mf.Metric, sample(m.value(fv), labels))
	}
	return mf
}

// WritePrometheus writes every registered metric to w in the Prometheus text
// exposition format. Metric names are prefixed with prefix.
func WritePrometheus(w io.Writer, prefix string) error {
	for _, m := range sortedMetrics() {
		if _, err := expfmt.MetricFamilyToText(w, m.family(prefix)); err != nil {
			return fmt.Errorf("writing metric %q: %w", m.name, err)
		}
	}
	return nil
}
