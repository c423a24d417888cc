// Package metrics provides build observability for sitebuilder.
//
// Components receive a Recorder through injection and default to NoopRecorder:
//
//	gen := build.NewGenerator(settings, dirs, build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The serve command wires a PrometheusRecorder and exposes it on /metrics via
// HTTPHandler. One-shot builds use NoopRecorder.
package metrics
