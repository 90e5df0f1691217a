package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmailMetricsValid(t *testing.T) {
	m, err := NewEmailMetrics(100, 80, 80, 20, 5, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, m.TotalRecipients)
	assert.Equal(t, 80, m.Sent)
	assert.InDelta(t, 25.0, m.OpenRate(), 1e-9)
	assert.InDelta(t, 6.25, m.ClickRate(), 1e-9)
	assert.InDelta(t, 100.0, m.DeliveryRate(), 1e-9)
	assert.InDelta(t, 25.0, m.ClickToOpenRate(), 1e-9)
}

func TestNewEmailMetricsRejectsViolations(t *testing.T) {
	tests := []struct {
		name                         string
		total, sent, del, op, cl     int
		bounced, unsub               int
		rule                         string
	}{
		{"negative counter", 10, -1, 0, 0, 0, 0, 0, "sent < 0"},
		{"sent over recipients", 10, 11, 0, 0, 0, 0, 0, "sent > total_recipients"},
		{"delivered over sent", 10, 5, 6, 0, 0, 0, 0, "delivered > sent"},
		{"opened over delivered", 10, 5, 5, 6, 0, 0, 0, "opened > delivered"},
		{"clicked over opened", 10, 5, 5, 2, 3, 0, 0, "clicked > opened"},
		{"bounced over sent", 10, 5, 5, 0, 0, 6, 0, "bounced > sent"},
		{"unsubscribed over delivered", 10, 5, 4, 0, 0, 0, 5, "unsubscribed > delivered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmailMetrics(tt.total, tt.sent, tt.del, tt.op, tt.cl, tt.bounced, tt.unsub)
			require.Error(t, err)
			require.True(t, IsInvariantViolation(err))
			assert.Contains(t, err.Error(), tt.rule)
		})
	}
}

func TestIncrementsReturnNewRecord(t *testing.T) {
	m, err := NewEmailMetrics(100, 50, 40, 10, 2, 0, 0)
	require.NoError(t, err)

	m2, err := m.IncrementOpened(5)
	require.NoError(t, err)
	assert.Equal(t, 10, m.Opened, "original must be unchanged")
	assert.Equal(t, 15, m2.Opened)
	assert.InDelta(t, 30.0, m2.OpenRate(), 1e-9)

	// An increment that would break the funnel is rejected and the
	// original record comes back.
	bad, err := m.IncrementClicked(20)
	require.Error(t, err)
	assert.True(t, IsInvariantViolation(err))
	assert.True(t, bad.Equals(m))
}

func TestIncrementChainStaysOrdered(t *testing.T) {
	m := EmptyEmailMetrics()
	var err error
	m, err = m.IncrementRecipients(1000)
	require.NoError(t, err)
	m, err = m.IncrementSent(800)
	require.NoError(t, err)
	m, err = m.IncrementDelivered(780)
	require.NoError(t, err)
	m, err = m.IncrementOpened(200)
	require.NoError(t, err)
	m, err = m.IncrementClicked(50)
	require.NoError(t, err)

	require.NoError(t, m.Validate())
	assert.True(t, m.Clicked <= m.Opened &&
		m.Opened <= m.Delivered &&
		m.Delivered <= m.Sent &&
		m.Sent <= m.TotalRecipients)
}

func TestRatesWithZeroDenominators(t *testing.T) {
	m := EmptyEmailMetrics()
	for name, r := range map[string]float64{
		"delivery":      m.DeliveryRate(),
		"open":          m.OpenRate(),
		"click":         m.ClickRate(),
		"click_to_open": m.ClickToOpenRate(),
		"bounce":        m.BounceRate(),
		"unsubscribe":   m.UnsubscribeRate(),
	} {
		assert.Zero(t, r, name)
		assert.False(t, math.IsNaN(r) || math.IsInf(r, 0), name)
	}
}

func TestEmailMetricsEquality(t *testing.T) {
	a, err := NewEmailMetrics(10, 8, 8, 3, 1, 0, 0)
	require.NoError(t, err)
	b, err := NewEmailMetrics(10, 8, 8, 3, 1, 0, 0)
	require.NoError(t, err)
	assert.True(t, a.Equals(b))
	assert.Equal(t, a, b)

	c, err := a.IncrementClicked(1)
	require.NoError(t, err)
	assert.False(t, a.Equals(c))
}
