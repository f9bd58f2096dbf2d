package deck

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		code string
		rank Rank
		suit Suit
	}{
		{"As", Ace, Spades},
		{"Kh", King, Hearts},
		{"Td", Ten, Diamonds},
		{"2c", Two, Clubs},
		{"9s", Nine, Spades},
		{"jc", Jack, Clubs},
	}

	for _, tt := range tests {
		card, err := Parse(tt.code)
		require.NoError(t, err, "parse %q", tt.code)
		assert.Equal(t, tt.rank, card.Rank)
		assert.Equal(t, tt.suit, card.Suit)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, code := range []string{"", "A", "Asx", "1s", "Ax", "Zz"} {
		_, err := Parse(code)
		assert.Error(t, err, "expected error for %q", code)
	}
}

func TestCardCodeRoundTrip(t *testing.T) {
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			card := NewCard(rank, suit)
			parsed, err := Parse(card.Code())
			require.NoError(t, err)
			assert.Equal(t, card, parsed)
		}
	}
}

func TestCardString(t *testing.T) {
	assert.Equal(t, "A♠", MustParse("As").String())
	assert.Equal(t, "T♥", MustParse("Th").String())
	assert.Equal(t, "2♣", MustParse("2c").String())
}

func TestCardJSON(t *testing.T) {
	data, err := json.Marshal(MustParse("Qd"))
	require.NoError(t, err)
	assert.Equal(t, `"Qd"`, string(data))

	var card Card
	require.NoError(t, json.Unmarshal([]byte(`"7h"`), &card))
	assert.Equal(t, MustParse("7h"), card)

	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &card))
}
