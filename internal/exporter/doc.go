// Package exporter writes tabular data to disk and to HTTP downloads.
//
// CSVWriter produces the plot CSV files written by the extraction runner.
// WriteXLSX renders a company file as a single-sheet Excel workbook using
// excelize.
package exporter
