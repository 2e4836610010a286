package entity

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"
)

// NewsItem is a news article. It is not owned by a symbol; Symbols links it to
// every ticker it mentions.
type NewsItem struct {
	ID             uint         `gorm:"primaryKey" json:"-"`
	HashIdentifier string       `gorm:"type:varchar(64);uniqueIndex;not null" json:"id"`
	Headline       string       `gorm:"not null" json:"headline"`
	Summary        string       `gorm:"type:text" json:"summary"`
	Source         string       `json:"source"`
	URL            string       `gorm:"not null" json:"url"`
	PublishedAt    time.Time    `gorm:"index" json:"published_at"`
	SentimentScore *float64     `json:"sentiment_score,omitempty"`
	Relevance      *float64     `json:"relevance,omitempty"`
	FetchedAt      time.Time    `gorm:"index" json:"fetched_at"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"-"`
	Symbols        []NewsSymbol `gorm:"foreignKey:NewsItemID" json:"-"`
}

// TableName specifies the table name for the NewsItem model.
func (NewsItem) TableName() string {
	return "news_items"
}

// NewsSymbol links a news item to a symbol it mentions.
type NewsSymbol struct {
	ID         uint   `gorm:"primaryKey"`
	NewsItemID uint   `gorm:"not null;uniqueIndex:idx_news_symbols_item_symbol,priority:1"`
	Symbol     string `gorm:"type:varchar(20);not null;uniqueIndex:idx_news_symbols_item_symbol,priority:2;index"`
}

func (NewsSymbol) TableName() string {
	return "news_symbols"
}

// NewsHash derives the stable identifier of an article from its url and publish time.
func NewsHash(url string, publishedAt time.Time) string {
	sum := md5.Sum([]byte(url + "|" + publishedAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}

// SymbolList returns the tickers the item mentions.
func (n NewsItem) SymbolList() []string {
	symbols := make([]string, 0, len(n.Symbols))
	for _, s := range n.Symbols {
		symbols = append(symbols, s.Symbol)
	}
	return symbols
}

// Mentions reports whether the item is linked to symbol.
func (n NewsItem) Mentions(symbol string) bool {
	for _, s := range n.Symbols {
		if s.Symbol == symbol {
			return true
		}
	}
	return false
}

// MarshalJSON renders the linked symbols as a flat list of tickers.
func (n NewsItem) MarshalJSON() ([]byte, error) {
	type alias NewsItem
	return json.Marshal(struct {
		alias
		SymbolCodes []string `json:"symbols"`
	}{
		alias:       alias(n),
		SymbolCodes: n.SymbolList(),
	})
}
