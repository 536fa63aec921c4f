package company

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"bsanalyzer/internal/config"
)

type sampleFile struct {
	name   string
	header []string
	rows   [][]string
}

// sampleFiles are written into every new workspace. Only sales and customer
// data carry rows.
func sampleFiles() []sampleFile {
	samples := []sampleFile{
		{name: "sales_data.csv", header: []string{"Date", "Product", "Quantity", "Revenue"}},
		{name: "customer_data.csv", header: []string{"CustomerID", "Name", "Email", "Region"}},
		{name: "inventory.csv", header: []string{"ProductID", "ProductName", "Stock", "Price"}},
		{name: "employee_data.csv", header: []string{"EmployeeID", "Name", "Department", "Salary"}},
		{name: "financials.csv", header: []string{"Month", "Revenue", "Expenses", "Profit"}},
		{name: "marketing.csv", header: []string{"Campaign", "Impressions", "Clicks", "Conversions"}},
		{name: "operations.csv", header: []string{"Metric", "Value", "Target", "Variance"}},
		{name: config.HiddenDataFile, header: []string{"InternalID", "ConfidentialData", "Score"}},
	}

	for i := 0; i < 5; i++ {
		n := i + 1
		samples[0].rows = append(samples[0].rows, []string{
			fmt.Sprintf("2024-01-%d", n),
			fmt.Sprintf("Product %d", n),
			strconv.Itoa(i * 10),
			strconv.Itoa(i * 1000),
		})
		samples[1].rows = append(samples[1].rows, []string{
			fmt.Sprintf("CUST%d", n),
			fmt.Sprintf("Customer %d", n),
			fmt.Sprintf("customer%d@email.com", n),
			fmt.Sprintf("Region %d", i%3+1),
		})
	}
	return samples
}

func (s sampleFile) render() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(s.header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(s.rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
