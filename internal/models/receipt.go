package models

// ParsedItem is one line extracted from a receipt image.
type ParsedItem struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ParsedReceipt is the structured output of receipt analysis.
type ParsedReceipt struct {
	Items        []ParsedItem `json:"items"`
	Tip          float64      `json:"tip"`
	MerchantName string       `json:"merchantName,omitempty"`
	Date         string       `json:"date,omitempty"`
}
