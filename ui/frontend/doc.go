// Package frontend provides SSR frontend handlers for the roverpanel UI.
//
// The frontend uses HTMX for interactivity and Tailwind CSS for styling,
// both loaded via CDN for simplicity.
//
// # Routes
//
// Control panel:
//   - GET /control - Device, movements, obstacles, recording and sequences
//   - POST /control/device - Switch device
//   - POST /control/command - Send a movement (op, speed)
//   - POST /control/obstacle - Simulate an obstacle (obstacle_key)
//   - POST /control/recording/start, /control/recording/stop
//   - POST /control/sequences - Save the recorded steps (name)
//   - POST /control/sequences/reload - Reload the sequence list of the device
//   - POST /control/playback/run - Replay a sequence (sequence_id)
//   - POST /control/playback/stop
//
// Monitor panel:
//   - GET /monitor - Movement, obstacle and route tables plus the event log
//   - POST /monitor/device - Switch device
//   - POST /monitor/refresh - Refresh all tables
//   - POST /monitor/auto - Toggle periodic refresh (enabled)
//
// HTMX Fragments:
//   - GET /control/fragments/* and /monitor/fragments/* - Partial HTML
//
// POST routes answer HTMX requests with the affected fragment and plain
// form posts with a 303 redirect to the page, or an error status.
//
// Health:
//   - GET /health
package frontend
