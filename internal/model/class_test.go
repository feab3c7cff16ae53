package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartInstant(t *testing.T) {
	c := YogaClass{
		Date:         time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		StartsAtTime: "18:30:00",
	}
	assert.Equal(t, time.Date(2026, 9, 7, 18, 30, 0, 0, time.UTC), c.StartInstant())
}

func TestStartInstantMalformedTimeFallsBackToMidnight(t *testing.T) {
	c := YogaClass{
		Date:         time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		StartsAtTime: "not a time",
	}
	assert.Equal(t, time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), c.StartInstant())
}
