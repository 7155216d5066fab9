// Package charts renders the monthly spend series as a PNG line chart.
package charts

import (
	"bytes"
	"fmt"
	"time"

	"pocketpilot/internal/core"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
)

// MonthlyTrend draws the observed monthly totals plus a dashed forecast
// continuation. It returns nil bytes when there are fewer than two observed
// months, since a single point has no trend to draw.
func MonthlyTrend(series core.CategorySeries, forecast []decimal.Decimal) ([]byte, error) {
	if len(series) < 2 {
		return nil, nil
	}

	xValues := make([]time.Time, len(series))
	yValues := make([]float64, len(series))
	for i, pt := range series {
		xValues[i] = pt.Period.Start()
		yValues[i] = pt.Amount.InexactFloat64()
	}

	seriesList := []chart.Series{
		chart.TimeSeries{
			Name:    "Monthly spend",
			XValues: xValues,
			YValues: yValues,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				StrokeWidth: 2,
			},
		},
	}

	if len(forecast) > 0 {
		// Anchor the forecast line at the last observed point so the two
		// series join up visually.
		fx := make([]time.Time, 0, len(forecast)+1)
		fy := make([]float64, 0, len(forecast)+1)
		last := series[len(series)-1]
		fx = append(fx, last.Period.Start())
		fy = append(fy, last.Amount.InexactFloat64())

		p := last.Period
		for _, pred := range forecast {
			p = p.Next()
			fx = append(fx, p.Start())
			fy = append(fy, pred.InexactFloat64())
		}

		seriesList = append(seriesList, chart.TimeSeries{
			Name:    "Forecast",
			XValues: fx,
			YValues: fy,
			Style: chart.Style{
				StrokeColor:     chart.ColorRed,
				StrokeWidth:     2,
				StrokeDashArray: []float64{5.0, 5.0},
			},
		})
	}

	graph := chart.Chart{
		Width:  900,
		Height: 450,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 40, Right: 40, Bottom: 40},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("2006-01"),
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%.0f", v.(float64))
			},
		},
		Series: seriesList,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
