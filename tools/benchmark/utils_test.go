package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "N/A", formatRate(10, 0))
	assert.Equal(t, "5.00/s", formatRate(10, 2*time.Second))
}

func TestPercentageString(t *testing.T) {
	assert.Equal(t, "0.00%", percentageString(5, 0))
	assert.Equal(t, "50.00%", percentageString(1, 2))
	assert.Equal(t, "100.00%", percentageString(7, 7))
}
