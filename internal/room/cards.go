package room

// CardConfig describes one estimation card: the label shown on the card, the
// numeric value submitted when it is picked, and the badge color.
type CardConfig struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Special card values. Negative values never collide with effort estimates.
const (
	// CardValueQuestion is the "?" card.
	CardValueQuestion float64 = -2
	// CardValueBig is the "too big to estimate" card.
	CardValueBig float64 = -1
)

// DefaultCardConfig returns the card deck new rooms start with.
func DefaultCardConfig() []CardConfig {
	return []CardConfig{
		{Label: "?", Value: CardValueQuestion, Color: "#bdbfbf"},
		{Label: "1/2", Value: 0.5, Color: "#667a66"},
		{Label: "1", Value: 1, Color: "#678a67"},
		{Label: "2", Value: 2, Color: "#6b966b"},
		{Label: "3", Value: 3, Color: "#6ea26e"},
		{Label: "5", Value: 5, Color: "#72ae72"},
		{Label: "8", Value: 8, Color: "#76ba76"},
		{Label: "13", Value: 13, Color: "#7ac67a"},
		{Label: "21", Value: 21, Color: "#7ed27e"},
		{Label: "34", Value: 34, Color: "#82de82"},
		{Label: "55", Value: 55, Color: "#86ea86"},
		{Label: "BIG", Value: CardValueBig, Color: "#ff7940"},
	}
}

// MatchingCardConfig returns the card configuration entry whose value equals
// the given value. Used to recover the display color for a consensus badge.
func (s State) MatchingCardConfig(value float64) (CardConfig, bool) {
	for _, card := range s.CardConfig {
		if card.Value == value {
			return card, true
		}
	}
	return CardConfig{}, false
}
