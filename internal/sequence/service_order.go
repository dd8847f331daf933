package sequence

import (
	"context"
	"fmt"
	"time"
)

// ServiceOrderKey names the counter behind service orders in every backend.
const ServiceOrderKey = "service_order"

// ServiceOrderGenerator formats counter values as IPS{seq:04d}TT{year}. The
// year is taken at generation time; the counter never resets.
type ServiceOrderGenerator struct {
	counter Counter
	now     func() time.Time
}

func NewServiceOrderGenerator(counter Counter, now func() time.Time) *ServiceOrderGenerator {
	if now == nil {
		now = time.Now
	}
	return &ServiceOrderGenerator{counter: counter, now: now}
}

func (g *ServiceOrderGenerator) Next(ctx context.Context) (string, error) {
	seq, err := g.counter.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("allocate service order: %w", err)
	}
	return FormatServiceOrder(seq, g.now().Year()), nil
}

func FormatServiceOrder(seq int64, year int) string {
	return fmt.Sprintf("IPS%04dTT%d", seq, year)
}
