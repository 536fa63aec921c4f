// Package extraction turns raw financial statement CSVs into the normalized
// "plot" CSVs read by the dashboard.
//
// A Recipe names a source file suffix (for example "BS.csv"), an output file
// name and an extraction function. Extraction functions are built from four
// primitives that resolve statement labels with a textmatch.Matcher:
//
//	ExtractRows        fixed target labels, relabelled, "NA" placeholders when absent
//	ExtractExceptional "Exceptional Items" with an "Extraordinary Items" fallback
//	ExtractBlock       rows strictly between two anchor labels
//	Exclude            every row except blanks, "--", excluded labels and "12 mths" remnants
//
// Runner walks a directory tree, applies every recipe whose suffix matches a
// file name and writes <dir>/plots/<output>. Per-file problems never abort a
// run; they are collected in the returned Report.
//
//	runner := extraction.NewRunner(root, extraction.DefaultRecipes(), textmatch.DefaultThreshold, logger)
//	report, err := runner.Run(ctx)
package extraction
