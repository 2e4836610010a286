package adapter

import (
	"fmt"
	"strings"

	"golang-market-aggregator/internal/entity"
)

// BuildPredictionPrompt asks the model for a JSON forecast of symbol over tf.
func BuildPredictionPrompt(symbol string, tf entity.Timeframe, quote *entity.Quote) string {
	var market strings.Builder
	if quote != nil {
		market.WriteString(fmt.Sprintf(
			"Current price: %.4f\nChange: %.4f (%.2f%%)\nDay range: %.4f - %.4f\nOpen: %.4f\nPrevious close: %.4f\nVolume: %d\nMarket cap: %.0f\n",
			quote.Price, quote.Change, quote.ChangePercent, quote.DayLow, quote.DayHigh, quote.DayOpen, quote.PreviousClose, quote.Volume, quote.MarketCap,
		))
	} else {
		market.WriteString("No current quote is available; base the forecast on what you know about the asset.\n")
	}

	promptTemplate := `You are a market analyst. Forecast the price of %s over %s.

Market data:
%s
Answer with JSON only, in this format:

{
  "predicted_price": {number},
  "predicted_change": {number, predicted_price minus current price},
  "predicted_change_percent": {number},
  "confidence": {0 - 100},
  "supporting_factors": ["{short reason}"],
  "risk_factors": ["{short risk}"]
}`

	return fmt.Sprintf(promptTemplate, symbol, tf.Description(), market.String())
}
