package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithCorrelation(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "req-1")
	assert.Equal(t, "req-1", Correlation(ctx))

	minted := Correlation(WithCorrelation(context.Background(), ""))
	assert.Len(t, minted, 36)
}

func TestCorrelationEmpty(t *testing.T) {
	assert.Equal(t, "", Correlation(context.Background()))
}
