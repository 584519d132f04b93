package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPriceRendersNonEmptyDecimalString(t *testing.T) {
	assert.NotEmpty(t, FormatPrice(123.456))
	assert.NotEmpty(t, FormatPrice(0))
	assert.NotEmpty(t, FormatPrice(-7.5))
}
