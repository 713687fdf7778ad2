package export

import (
	"errors"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"

	"pricesync/internal/fetcher"
)

// WriteRatesChart renders the fetched mid rates as a PNG bar chart.
func WriteRatesChart(path string, rates []fetcher.CurrencyRate) error {
	if len(rates) == 0 {
		return errors.New("no rates to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(rates))
	maxValue := 0.0
	for _, rate := range rates {
		v := rate.Mid.InexactFloat64()
		if v > maxValue {
			maxValue = v
		}
		bars = append(bars, chart.Value{Label: rate.Code, Value: v})
	}

	graph := chart.BarChart{
		Title:    "NBP mid rates (PLN)",
		Width:    1024,
		Height:   512,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.3f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}
