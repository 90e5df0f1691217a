package domain

import "fmt"

// EmailMetrics is the immutable funnel-counter record owned by an email
// campaign or list. Counters form a strictly ordered funnel:
//
//	clicked <= opened <= delivered <= sent <= totalRecipients
//
// plus bounced <= sent and unsubscribed <= delivered. All counters are
// non-negative. Every increment returns a new record; the caller rebinds
// its reference. Two records with identical counters are equal (the struct
// is comparable), regardless of which entity produced them.
type EmailMetrics struct {
	TotalRecipients int `json:"total_recipients" db:"total_recipients"`
	Sent            int `json:"sent" db:"sent"`
	Delivered       int `json:"delivered" db:"delivered"`
	Opened          int `json:"opened" db:"opened"`
	Clicked         int `json:"clicked" db:"clicked"`
	Bounced         int `json:"bounced" db:"bounced"`
	Unsubscribed    int `json:"unsubscribed" db:"unsubscribed"`
}

// EmptyEmailMetrics returns the zero-valued record.
func EmptyEmailMetrics() EmailMetrics { return EmailMetrics{} }

// NewEmailMetrics validates the counters and returns the record, or an
// *InvariantViolation naming the first offending counter or pair.
func NewEmailMetrics(totalRecipients, sent, delivered, opened, clicked, bounced, unsubscribed int) (EmailMetrics, error) {
	m := EmailMetrics{
		TotalRecipients: totalRecipients,
		Sent:            sent,
		Delivered:       delivered,
		Opened:          opened,
		Clicked:         clicked,
		Bounced:         bounced,
		Unsubscribed:    unsubscribed,
	}
	if err := m.Validate(); err != nil {
		return EmailMetrics{}, err
	}
	return m, nil
}

// Validate checks non-negativity and funnel ordering in one pass, reporting
// the first violated rule.
func (m EmailMetrics) Validate() error {
	for _, c := range []struct {
		name  string
		value int
	}{
		{"total_recipients", m.TotalRecipients},
		{"sent", m.Sent},
		{"delivered", m.Delivered},
		{"opened", m.Opened},
		{"clicked", m.Clicked},
		{"bounced", m.Bounced},
		{"unsubscribed", m.Unsubscribed},
	} {
		if c.value < 0 {
			return &InvariantViolation{Rule: fmt.Sprintf("%s < 0", c.name)}
		}
	}
	switch {
	case m.Sent > m.TotalRecipients:
		return &InvariantViolation{Rule: "sent > total_recipients"}
	case m.Delivered > m.Sent:
		return &InvariantViolation{Rule: "delivered > sent"}
	case m.Opened > m.Delivered:
		return &InvariantViolation{Rule: "opened > delivered"}
	case m.Clicked > m.Opened:
		return &InvariantViolation{Rule: "clicked > opened"}
	case m.Bounced > m.Sent:
		return &InvariantViolation{Rule: "bounced > sent"}
	case m.Unsubscribed > m.Delivered:
		return &InvariantViolation{Rule: "unsubscribed > delivered"}
	}
	return nil
}

// Equals reports structural equality (field by field).
func (m EmailMetrics) Equals(other EmailMetrics) bool { return m == other }

func (m EmailMetrics) with(mutate func(*EmailMetrics)) (EmailMetrics, error) {
	next := m
	mutate(&next)
	if err := next.Validate(); err != nil {
		return m, err
	}
	return next, nil
}

// IncrementRecipients adds n to the recipient count and returns the new record.
func (m EmailMetrics) IncrementRecipients(n int) (EmailMetrics, error) {
	return m.with(func(x *EmailMetrics) { x.TotalRecipients += n })
}

// IncrementSent adds n sends and returns the new record.
func (m EmailMetrics) IncrementSent(n int) (EmailMetrics, error) {
	return m.with(func(x *EmailMetrics) { x.Sent += n })
}

// IncrementDelivered adds n deliveries and returns the new record.
func (m EmailMetrics) IncrementDelivered(n int) (EmailMetrics, error) {
	return m.with(func(x *EmailMetrics) { x.Delivered += n })
}

// IncrementOpened adds n opens and returns the new record.
func (m EmailMetrics) IncrementOpened(n int) (EmailMetrics, error) {
	return m.with(func(x *EmailMetrics) { x.Opened += n })
}

// IncrementClicked adds n clicks and returns the new record.
func (m EmailMetrics) IncrementClicked(n int) (EmailMetrics, error) {
	return m.with(func(x *EmailMetrics) { x.Clicked += n })
}

// IncrementBounced adds n bounces and returns the new record.
func (m EmailMetrics) IncrementBounced(n int) (EmailMetrics, error) {
	return m.with(func(x *EmailMetrics) { x.Bounced += n })
}

// IncrementUnsubscribed adds n unsubscribes and returns the new record.
func (m EmailMetrics) IncrementUnsubscribed(n int) (EmailMetrics, error) {
	return m.with(func(x *EmailMetrics) { x.Unsubscribed += n })
}

// rate guards every percentage here: zero denominator yields 0, never an
// error and never a non-finite value.
func rate(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// DeliveryRate returns delivered/sent as a percentage.
func (m EmailMetrics) DeliveryRate() float64 { return rate(m.Delivered, m.Sent) }

// OpenRate returns opened/sent as a percentage.
func (m EmailMetrics) OpenRate() float64 { return rate(m.Opened, m.Sent) }

// ClickRate returns clicked/sent as a percentage.
func (m EmailMetrics) ClickRate() float64 { return rate(m.Clicked, m.Sent) }

// ClickToOpenRate returns clicked/opened as a percentage.
func (m EmailMetrics) ClickToOpenRate() float64 { return rate(m.Clicked, m.Opened) }

// BounceRate returns bounced/sent as a percentage.
func (m EmailMetrics) BounceRate() float64 { return rate(m.Bounced, m.Sent) }

// UnsubscribeRate returns unsubscribed/delivered as a percentage.
func (m EmailMetrics) UnsubscribeRate() float64 { return rate(m.Unsubscribed, m.Delivered) }
