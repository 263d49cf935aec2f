package main

import (
	"fmt"
	"io"
	"strconv"

	"deliverylens/internal/engine"
)

const insufficient = "insufficient data"

func printReport(w io.Writer, rep engine.Report) error {
	p := &printer{w: w}
	p.line("Delivery Performance Report")
	p.line("Generated: %s", rep.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))
	p.line("Date Range: %s | Payment Type: %s | Review Scope: %s", rep.DateRange, rep.PaymentType, rep.ReviewScope)
	p.line("")

	c := rep.Counts
	p.line("Orders")
	p.line("- Loaded: %d | In Range: %d | Eligible: %d | Late: %d", c.OrdersLoaded, c.OrdersInRange, c.EligibleOrders, c.LateOrders)
	p.line("- On-Time Rate: %s", metric(rep.OnTimeRate, "%.1f%%"))
	p.line("- Average Delivery Time: %s", metric(rep.AverageDeliveryDays, "%.1f days"))
	p.line("")

	p.line("Top %d Late Orders", rep.TopN)
	if len(rep.TopLateOrders) == 0 {
		p.line("- none")
	}
	for _, r := range rep.TopLateOrders {
		days := "n/a"
		if r.DeliveryDays != nil {
			days = strconv.Itoa(*r.DeliveryDays)
		}
		p.line("- %s | Days Late: %d | Delivery Days: %s", r.OrderID, r.DaysLate, days)
	}
	p.line("")

	p.line("Payments")
	p.line("- Loaded: %d | Selected: %d", c.PaymentsLoaded, c.PaymentsSelected)
	if rep.MostPopularPayment != "" {
		p.line("- Most Popular: %s", rep.MostPopularPayment)
	}
	for _, s := range rep.PaymentDistribution {
		p.line("  - %s | Count: %d | Share: %.1f%% | Total: %.2f", s.PaymentType, s.Count, s.Percentage, s.TotalValue)
	}
	p.line("")

	p.line("Reviews")
	p.line("- Loaded: %d | Scored: %d | Joined With Deliveries: %d", c.ReviewsLoaded, c.ReviewsScored, c.JoinedPairs)
	p.line("- Average Review Score: %s", metric(rep.AverageReviewScore, "%.2f"))
	for _, s := range rep.ScoreSummaries {
		p.line("  - Score %d | n=%d | min %.0f | q1 %.1f | median %.1f | q3 %.1f | max %.0f",
			s.ReviewScore, s.Count, s.Min, s.Q1, s.Median, s.Q3, s.Max)
	}

	if len(rep.Notices) > 0 {
		p.line("")
		p.line("Notices")
		for _, n := range rep.Notices {
			p.line("- [%s] %s: %s", n.Kind, n.Section, n.Message)
		}
	}
	return p.err
}

func metric(m engine.Metric, format string) string {
	if !m.Defined {
		return insufficient
	}
	return fmt.Sprintf(format, m.Value)
}

// printer keeps the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}
