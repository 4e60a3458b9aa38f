package analytics

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteSummaryCSV serialises the headline metrics to CSV.
func WriteSummaryCSV(w io.Writer, summary Summary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Total Orders", strconv.Itoa(summary.TotalOrders)},
		{"Total Revenue", formatFloat(summary.TotalRevenue)},
		{"Monthly Revenue", formatFloat(summary.MonthlyRevenue)},
		{"Average Order Value", formatFloat(summary.AverageOrderValue)},
		{"Total Users", strconv.Itoa(summary.TotalUsers)},
		{"New Users This Month", strconv.Itoa(summary.NewUsersThisMonth)},
		{"Low Stock Products", strconv.Itoa(summary.LowStockProducts)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteRevenueCSV emits the monthly revenue trend as CSV.
func WriteRevenueCSV(w io.Writer, points []RevenuePoint) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Month", "Orders", "Revenue"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{
			point.Month,
			strconv.Itoa(point.Orders),
			formatFloat(point.Revenue),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTopProductsCSV emits the best sellers as CSV.
func WriteTopProductsCSV(w io.Writer, products []ProductPerformance) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"SKU", "Name", "Units", "Revenue"}); err != nil {
		return err
	}
	for _, p := range products {
		if err := writer.Write([]string{
			p.SKU,
			p.Name,
			strconv.Itoa(p.Units),
			formatFloat(p.Revenue),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
