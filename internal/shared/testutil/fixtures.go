package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Statement fixtures with the labels the default recipes look for.
const (
	BalanceSheetCSV = "Particulars,Mar 23,Mar 24\n" +
		"Total Current Liabilities,50,55\n" +
		"Total Non-Current Liabilities,70,75\n" +
		"Total Current Assets,100,110\n" +
		"Total Non-Current Assets,200,210\n"

	ProfitAndLossCSV = "Particulars,FY23,FY24\n" +
		"Revenue,100,120\n" +
		"EXPENSES,,\n" +
		"Employee Cost,20,22\n" +
		"Total Expenses,50,57\n" +
		"Total Tax Expenses,10,12\n"

	RatiosCSV = "Particulars,FY23,FY24\n" +
		"Current Ratio (X),1.2,1.3\n" +
		"Quick Ratio (X),0.9,1.0\n" +
		"Total Debt/Equity (X),0.5,0.4\n"
)

// WriteFile creates path and its parent folders with content.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteStatements writes a balance sheet, a profit and loss statement and a
// ratio sheet for companyID below root and returns the company folder.
func WriteStatements(t testing.TB, root, companyID string) string {
	t.Helper()
	dir := filepath.Join(root, companyID)
	WriteFile(t, filepath.Join(dir, companyID+"-BS.csv"), BalanceSheetCSV)
	WriteFile(t, filepath.Join(dir, companyID+"-PL.csv"), ProfitAndLossCSV)
	WriteFile(t, filepath.Join(dir, "ratios.csv"), RatiosCSV)
	return dir
}
