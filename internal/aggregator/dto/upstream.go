package dto

// YahooQuoteResponse is the body of the Yahoo Finance v7 quote endpoint.
type YahooQuoteResponse struct {
	QuoteResponse struct {
		Result []YahooQuote `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// YahooQuote is one entry of YahooQuoteResponse.
type YahooQuote struct {
	Symbol                     string   `json:"symbol"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketChange        float64  `json:"regularMarketChange"`
	RegularMarketChangePercent float64  `json:"regularMarketChangePercent"`
	RegularMarketVolume        int64    `json:"regularMarketVolume"`
	MarketCap                  float64  `json:"marketCap"`
	RegularMarketDayHigh       float64  `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64  `json:"regularMarketDayLow"`
	RegularMarketOpen          float64  `json:"regularMarketOpen"`
	RegularMarketPreviousClose float64  `json:"regularMarketPreviousClose"`
	RegularMarketTime          int64    `json:"regularMarketTime"`
}

// AlphaVantageNewsResponse is the body of the NEWS_SENTIMENT function.
// Note and Information are set instead of Feed when the key is throttled.
type AlphaVantageNewsResponse struct {
	Items       string                 `json:"items"`
	Feed        []AlphaVantageNewsItem `json:"feed"`
	Note        string                 `json:"Note"`
	Information string                 `json:"Information"`
	ErrorMsg    string                 `json:"Error Message"`
}

// AlphaVantageNewsItem is one article of the feed.
type AlphaVantageNewsItem struct {
	Title                 string                        `json:"title"`
	URL                   string                        `json:"url"`
	TimePublished         string                        `json:"time_published"`
	Summary               string                        `json:"summary"`
	Source                string                        `json:"source"`
	OverallSentimentScore float64                       `json:"overall_sentiment_score"`
	TickerSentiment       []AlphaVantageTickerSentiment `json:"ticker_sentiment"`
}

// AlphaVantageTickerSentiment links an article to a ticker. Scores are strings upstream.
type AlphaVantageTickerSentiment struct {
	Ticker               string `json:"ticker"`
	RelevanceScore       string `json:"relevance_score"`
	TickerSentimentScore string `json:"ticker_sentiment_score"`
}

// SentimentAPIResponse is the body of the per-symbol sentiment endpoint.
type SentimentAPIResponse struct {
	Symbol  string   `json:"symbol"`
	Overall *float64 `json:"overall"`
	Social  float64  `json:"social"`
	News    float64  `json:"news"`
	Analyst float64  `json:"analyst"`
}

// PredictionResult is the JSON answer expected from the prediction model.
type PredictionResult struct {
	PredictedPrice         float64  `json:"predicted_price"`
	PredictedChange        *float64 `json:"predicted_change"`
	PredictedChangePercent *float64 `json:"predicted_change_percent"`
	Confidence             float64  `json:"confidence"`
	SupportingFactors      []string `json:"supporting_factors"`
	RiskFactors            []string `json:"risk_factors"`
}
