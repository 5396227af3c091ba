// Package repository provides store interfaces and GORM implementations
// for labels and analysis logs.
package repository
