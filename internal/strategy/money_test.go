package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoneyRendersNonEmptyDecimalString(t *testing.T) {
	assert.NotEmpty(t, FormatMoney(1000.0))
	assert.NotEmpty(t, FormatMoney(0))
	assert.NotEmpty(t, FormatMoney(-42.125))
}
