// Package server exposes the surveillance engine over HTTP: on-demand
// detection, activity details, monitoring control and a dashboard summary.
// Handlers translate engine errors onto status codes; all detection and
// scoring logic lives in the engine packages.
package server
