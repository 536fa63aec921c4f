package extraction

import (
	"fmt"
	"sort"
	"strings"

	"bsanalyzer/internal/textmatch"
)

// Recipe maps source files ending in Suffix to one plot output.
type Recipe struct {
	Name        string
	Suffix      string
	Output      string
	Description string
	Extract     func(t *Table, m textmatch.Matcher) Result
}

// Target label lists.
var (
	AssetsAndLiabilitiesLabels = []string{
		"Total Current Liabilities",
		"Total Non-Current Liabilities",
		"Total Current Assets",
		"Total Non-Current Assets",
	}
	TaxExpenseLabels = []string{
		"Total Tax Expenses",
	}
	CashFlowExclusions = []string{
		"Cash And Cash Equivalents Begin of Year",
		"Cash And Cash Equivalents End Of Year",
	}
	LeverageLabels = []string{
		"Current Ratio (X)",
		"Quick Ratio (X)",
		"Total Debt/Equity (X)",
	}
)

// Expense block anchors.
const (
	ExpensesStart = "EXPENSES"
	ExpensesEnd   = "Total Expenses"
)

// Output file names.
const (
	AssetsAndLiabilitiesOutput = "01_plot_AandL.csv"
	ExpensesOutput             = "03_plot_expenses.csv"
	CashFlowOutput             = "04_plot_cashflow.csv"
	LeverageOutput             = "06_plot_leverage.csv"
)

// DefaultRecipes returns the four statement recipes.
func DefaultRecipes() []Recipe {
	return []Recipe{
		{
			Name:        "plot01",
			Suffix:      "BS.csv",
			Output:      AssetsAndLiabilitiesOutput,
			Description: "current and non-current assets and liabilities from the balance sheet",
			Extract:     extractAssetsAndLiabilities,
		},
		{
			Name:        "plot03",
			Suffix:      "-PL.csv",
			Output:      ExpensesOutput,
			Description: "expense lines, tax and exceptional items from the profit and loss statement",
			Extract:     extractExpenses,
		},
		{
			Name:        "plot04",
			Suffix:      "cash-flow.csv",
			Output:      CashFlowOutput,
			Description: "cash-flow lines without opening and closing balances",
			Extract:     extractCashFlow,
		},
		{
			Name:        "plot06",
			Suffix:      "ratios.csv",
			Output:      LeverageOutput,
			Description: "liquidity and leverage ratios",
			Extract:     extractLeverage,
		},
	}
}

// SelectRecipes returns the recipes named in names, in the order given. An
// empty names list selects every recipe.
func SelectRecipes(recipes []Recipe, names []string) ([]Recipe, error) {
	if len(names) == 0 {
		return recipes, nil
	}
	byName := make(map[string]Recipe, len(recipes))
	for _, r := range recipes {
		byName[r.Name] = r
	}
	selected := make([]Recipe, 0, len(names))
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			known := make([]string, 0, len(byName))
			for k := range byName {
				known = append(known, k)
			}
			sort.Strings(known)
			return nil, fmt.Errorf("unknown recipe %q (known: %s)", name, strings.Join(known, ", "))
		}
		selected = append(selected, r)
	}
	return selected, nil
}

// OutputNames returns the plot names (output file names without extension)
// produced by recipes.
func OutputNames(recipes []Recipe) []string {
	names := make([]string, len(recipes))
	for i, r := range recipes {
		names[i] = strings.TrimSuffix(r.Output, ".csv")
	}
	return names
}

func extractAssetsAndLiabilities(t *Table, m textmatch.Matcher) Result {
	var res Result
	res.add(ExtractRows(t, AssetsAndLiabilitiesLabels, m))
	return res
}

func extractExpenses(t *Table, m textmatch.Matcher) Result {
	var res Result
	res.add(ExtractBlock(t, ExpensesStart, ExpensesEnd, m))
	res.add(ExtractRows(t, TaxExpenseLabels, m))

	row, diag := ExtractExceptional(t, m)
	res.Rows = append(res.Rows, row)
	if diag != nil {
		res.Diagnostics = append(res.Diagnostics, *diag)
	}
	return res
}

func extractCashFlow(t *Table, m textmatch.Matcher) Result {
	kept, excluded := Exclude(t, CashFlowExclusions, m)
	return Result{Rows: kept, Excluded: excluded}
}

func extractLeverage(t *Table, m textmatch.Matcher) Result {
	var res Result
	res.add(ExtractRows(t, LeverageLabels, m))
	return res
}
