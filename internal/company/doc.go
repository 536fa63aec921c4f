// Package company manages the per-company workspaces under the company data
// directory.
//
// A workspace is a folder named after the company id. It is provisioned with
// sample CSV files and a system prompt when the company registers, receives
// the company's statements from the source-data root when an admin approves
// it, and holds the plots/ folder written by the extraction runner.
//
// The package serves the dashboard views of that folder: the visible file
// list, a file as columns and rows, an XLSX rendering of a file, and plots
// pivoted into one record per period.
package company
