package arbitrage

import (
	"github.com/shopspring/decimal"

	"marketsense/internal/model"
)

// trendFactors shape the illustrative week leading up to today's price.
var trendFactors = []struct {
	day    string
	factor decimal.Decimal
}{
	{"Mon", decimal.RequireFromString("0.9")},
	{"Tue", decimal.RequireFromString("0.95")},
	{"Wed", decimal.RequireFromString("0.92")},
	{"Thu", decimal.RequireFromString("0.98")},
	{"Fri", decimal.RequireFromString("1.05")},
	{"Sat", decimal.RequireFromString("1.02")},
	{"Today", decimal.NewFromInt(1)},
}

// Trend returns a seven day price movement ending at price. The history is
// synthetic and only meant for charts.
func Trend(price int) []model.TrendPoint {
	base := decimal.NewFromInt(int64(price))
	points := make([]model.TrendPoint, len(trendFactors))
	for i, tf := range trendFactors {
		points[i] = model.TrendPoint{
			Day:   tf.day,
			Price: int(base.Mul(tf.factor).Round(0).IntPart()),
		}
	}
	return points
}
