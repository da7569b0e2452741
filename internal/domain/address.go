package domain

// Address is the shipping snapshot attached to an order. Orders start with an
// empty placeholder that the gateway overwrites on a successful checkout.
type Address struct {
	ID         int64  `json:"id"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a Address) IsPlaceholder() bool {
	return a.Line1 == "" && a.City == "" && a.PostalCode == "" && a.Country == ""
}
