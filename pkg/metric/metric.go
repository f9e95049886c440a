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

// Package metric provides primitives for collecting metrics.
//
// Metrics are registered once, by name, and are read either as a snapshot
// (Values) or in the Prometheus text exposition format (WritePrometheus).
package metric

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"acl.dev/devlock/pkg/sync"
)

var (
	// ErrNameInUse indicates that another metric is already defined for
	// the given name.
	ErrNameInUse = errors.New("metric name already in use")

	// ErrInitializationDone indicates that the caller tried to create a
	// new metric after initialization.
	ErrInitializationDone = errors.New("metric cannot be created after initialization is complete")

	// ErrInvalidName indicates that a metric name does not have the
	// "/component/name" form.
	ErrInvalidName = errors.New("metric name must start with '/' and contain only [a-z0-9_/]")

	// ErrFieldHasNoAllowedValues indicates that the field needs to define some
	// allowed values to be a valid and useful field.
	ErrFieldHasNoAllowedValues = errors.New("metric field does not define any allowed values")
)

// Field contains the field name and allowed values for the metric which is
// used in registration of the metric.
type Field struct {
	// name is the metric field name.
	name string

	// allowedValues is the list of allowed values for the field.
	allowedValues []string
}

// NewField defines a new Field that can be used to break down a metric.
func NewField(name string, allowedValues ...string) Field {
	return Field{
		name:          name,
		allowedValues: allowedValues,
	}
}

// metadata describes a registered metric. It is immutable.
type metadata struct {
	name        string
	description string
	cumulative  bool
	field       *Field
}

// customUint64Metric is a metric whose value is produced by a callback.
type customUint64Metric struct {
	metadata

	// value returns the current value of the metric for the given field
	// value, or for the metric as a whole if it has no field.
	value func(fieldValues ...string) uint64
}

// Uint64Metric encapsulates a uint64 that represents some kind of metric to be
// monitored. It optionally breaks down by one field.
type Uint64Metric struct {
	// fields holds one counter per allowed field value, or a single
	// counter if the metric has no field.
	fields []atomic.Uint64

	// index maps field values to positions in fields.
	index map[string]int
}

var (
	// mu protects the registry below.
	mu sync.Mutex

	// initialized indicates that all metrics are registered. allMetrics is
	// immutable once initialized is true.
	initialized bool

	// allMetrics are the registered metrics, by name.
	allMetrics = map[string]customUint64Metric{}
)

// Initialize marks registration as complete. Metrics can no longer be
// registered afterwards.
func Initialize() error {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return errors.New("metric.Initialize called after metric.Initialize")
	}
	initialized = true
	return nil
}

func validName(name string) bool {
	if !strings.HasPrefix(name, "/") || len(name) < 2 {
		return false
	}
	for _, c := range name[1:] {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '/':
		default:
			return false
		}
	}
	return true
}

// RegisterCustomUint64Metric registers a metric with the given name whose
// value is computed by value on every read.
//
// Preconditions:
//   - name must be globally unique.
//   - Initialize has not been called.
//   - value must accept one argument if a field is given, none otherwise.
func RegisterCustomUint64Metric(name string, cumulative bool, description string, value func(...string) uint64, fields ...Field) error {
	if !validName(name) {
		return ErrInvalidName
	}
	if l := len(fields); l > 1 {
		return fmt.Errorf("%d fields provided, must be <= 1", l)
	}
	m := customUint64Metric{
		metadata: metadata{
			name:        name,
			description: description,
			cumulative:  cumulative,
		},
		value: value,
	}
	if len(fields) == 1 {
		if len(fields[0].allowedValues) == 0 {
			return ErrFieldHasNoAllowedValues
		}
		f := fields[0]
		m.field = &f
	}

	mu.Lock()
	defer mu.Unlock()
	if initialized {
		return ErrInitializationDone
	}
	if _, ok := allMetrics[name]; ok {
		return ErrNameInUse
	}
	allMetrics[name] = m
	return nil
}

// NewUint64Metric creates and registers a new cumulative metric with the given
// name.
//
// It must be called before Initialize.
func NewUint64Metric(name string, description string, fields ...Field) (*Uint64Metric, error) {
	m := &Uint64Metric{fields: make([]atomic.Uint64, 1)}
	if len(fields) == 1 {
		m.fields = make([]atomic.Uint64, len(fields[0].allowedValues))
		m.index = make(map[string]int, len(fields[0].allowedValues))
		for i, v := range fields[0].allowedValues {
			m.index[v] = i
		}
	}
	return m, RegisterCustomUint64Metric(name, true /* cumulative */, description, m.Value, fields...)
}

func (m *Uint64Metric) key(fieldValues []string) int {
	if m.index == nil {
		if len(fieldValues) != 0 {
			panic(fmt.Sprintf("metric has no fields, got %v", fieldValues))
		}
		return 0
	}
	if len(fieldValues) != 1 {
		panic(fmt.Sprintf("metric has one field, got %v", fieldValues))
	}
	k, ok := m.index[fieldValues[0]]
	if !ok {
		panic(fmt.Sprintf("field value %q not allowed", fieldValues[0]))
	}
	return k
}

// Value returns the current value of the metric for the given set of fields.
// This must be called with the correct number of field values or it will panic.
func (m *Uint64Metric) Value(fieldValues ...string) uint64 {
	return m.fields[m.key(fieldValues)].Load()
}

// Increment increments the metric field by 1.
// This must be called with the correct number of field values or it will panic.
func (m *Uint64Metric) Increment(fieldValues ...string) {
	m.fields[m.key(fieldValues)].Add(1)
}

// Sample is one value of one metric.
type Sample struct {
	// Name is the registered metric name.
	Name string

	// FieldValue is the field value the sample is for, empty if the metric
	// has no field.
	FieldValue string

	// Value is the metric value.
	Value uint64
}

// Values returns a snapshot of every registered metric, ordered by name and
// field value.
func Values() []Sample {
	var samples []Sample
	for _, m := range sortedMetrics() {
		if m.field == nil {
			samples = append(samples, Sample{Name: m.name, Value: m.value()})
			continue
		}
		for _, v := range m.field.allowedValues {
			samples = append(samples, Sample{Name: m.name, FieldValue: v, Value: m.value(v)})
		}
	}
	return samples
}

func sortedMetrics() []customUint64Metric {
	mu.Lock()
	ms := make([]customUint64Metric, 0, len(allMetrics))
	for _, m := range allMetrics {
		ms = append(ms, m)
	}
	mu.Unlock()
	sort.Slice(ms, func(i, j int) bool { return ms[i].name < ms[j].name })
	return ms
}
