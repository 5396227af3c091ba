// Package classifier turns an image into a single labelled classification.
//
// A Dispatcher validates the input, picks one Provider from the current
// Availability (vision, then remote mock, then local; no fallback between
// them), and normalizes the provider's answer into an Outcome. Detected
// names are resolved to stable ids through the label registry. A Recorder
// wraps each dispatch with request and response timestamps.
package classifier
