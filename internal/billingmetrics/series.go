package billingmetrics

import (
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
)

// sample is one counter or gauge value. Histograms and summaries are only
// served on /metrics and never pushed.
type sample struct {
	labels []*dto.LabelPair
	value  float64
}

func samplesOf(family *dto.MetricFamily) []sample {
	out := make([]sample, 0, len(family.GetMetric()))
	for _, m := range family.GetMetric() {
		var value float64
		switch {
		case m == nil:
			continue
		case family.GetType() == dto.MetricType_COUNTER && m.GetCounter() != nil:
			value = m.GetCounter().GetValue()
		case family.GetType() == dto.MetricType_GAUGE && m.GetGauge() != nil:
			value = m.GetGauge().GetValue()
		default:
			continue
		}
		out = append(out, sample{labels: m.GetLabel(), value: value})
	}
	return out
}

func buildRemoteWriteSeries(families []*dto.MetricFamily, timestampMs int64) []prompb.TimeSeries {
	var series []prompb.TimeSeries
	for _, family := range families {
		for _, s := range samplesOf(family) {
			labels := []prompb.Label{{Name: "__name__", Value: family.GetName()}}
			for _, l := range s.labels {
				labels = append(labels, prompb.Label{Name: l.GetName(), Value: l.GetValue()})
			}
			// remote write receivers expect labels sorted by name
			sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })

			series = append(series, prompb.TimeSeries{
				Labels:  labels,
				Samples: []prompb.Sample{{Value: s.value, Timestamp: timestampMs}},
			})
		}
	}
	return series
}

func buildOTLPMetrics(families []*dto.MetricFamily, nowUnixNano uint64) []*metricspb.Metric {
	var out []*metricspb.Metric
	for _, family := range families {
		samples := samplesOf(family)
		if len(samples) == 0 {
			continue
		}

		points := make([]*metricspb.NumberDataPoint, 0, len(samples))
		for _, s := range samples {
			points = append(points, &metricspb.NumberDataPoint{
				Attributes:   otlpAttributes(s.labels),
				TimeUnixNano: nowUnixNano,
				Value:        &metricspb.NumberDataPoint_AsDouble{AsDouble: s.value},
			})
		}

		metric := &metricspb.Metric{Name: family.GetName(), Description: family.GetHelp()}
		if family.GetType() == dto.MetricType_COUNTER {
			metric.Data = &metricspb.Metric_Sum{Sum: &metricspb.Sum{
				IsMonotonic:            true,
				AggregationTemporality: metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE,
				DataPoints:             points,
			}}
		} else {
			metric.Data = &metricspb.Metric_Gauge{Gauge: &metricspb.Gauge{DataPoints: points}}
		}
		out = append(out, metric)
	}
	return out
}

func otlpAttributes(labels []*dto.LabelPair) []*commonpb.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	attrs := make([]*commonpb.KeyValue, 0, len(labels))
	for _, l := range labels {
		attrs = append(attrs, &commonpb.KeyValue{
			Key:   l.GetName(),
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: l.GetValue()}},
		})
	}
	return attrs
}
