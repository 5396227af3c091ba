// Package entities defines the GORM models for the image-analyzer schema.
//
// Tables:
//   - object_labels: append-only registry of normalized object names
//   - ai_analysis_log: one row per completed analysis request
package entities
