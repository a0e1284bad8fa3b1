package convlog

import (
	"context"
	"math/rand"
	"time"

	contractx "github.com/aryanranjan/aria/brain/contract"
)

// Dashboard is the aggregation read for the analytics endpoint. Fields with
// no backing event source are simulated, as in the original demo stack.
type Dashboard struct {
	Metrics          Metrics        `json:"metrics"`
	ChannelBreakdown map[string]int `json:"channel_breakdown"`
	Timestamp        time.Time      `json:"timestamp"`
}

type Metrics struct {
	ActiveUsers        int     `json:"active_users"`
	ConversationsToday int     `json:"conversations_today"`
	ConversionRate     float64 `json:"conversion_rate"`
	AverageOrderValue  int     `json:"average_order_value"`
	RevenueToday       int     `json:"revenue_today"`
	SatisfactionScore  float64 `json:"satisfaction_score"`
}

// Dashboard aggregates the last 24 hours of events.
func (p *Postgres) Dashboard(ctx context.Context) (Dashboard, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	since := time.Now().UTC().Add(-24 * time.Hour)

	conversations, err := p.db.NewSelect().
		Model((*Record)(nil)).
		Where("type = ?", string(contractx.EventTurnRecorded)).
		Where("timestamp >= ?", since).
		Count(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	var activeUsers int
	if err := p.db.NewSelect().
		Model((*Record)(nil)).
		ColumnExpr("COUNT(DISTINCT user_id)").
		Where("timestamp >= ?", since).
		Scan(ctx, &activeUsers); err != nil {
		return Dashboard{}, err
	}

	var byChannel []struct {
		Channel string `bun:"channel"`
		Total   int    `bun:"total"`
	}
	if err := p.db.NewSelect().
		Model((*Record)(nil)).
		Column("channel").
		ColumnExpr("COUNT(*) AS total").
		Where("type = ?", string(contractx.EventTurnRecorded)).
		Where("timestamp >= ?", since).
		Group("channel").
		Scan(ctx, &byChannel); err != nil {
		return Dashboard{}, err
	}

	breakdown := make(map[string]int, len(byChannel))
	for _, row := range byChannel {
		if row.Channel != "" {
			breakdown[row.Channel] = row.Total
		}
	}

	return Dashboard{
		Metrics: Metrics{
			ActiveUsers:        activeUsers,
			ConversationsToday: conversations,
			// No purchase funnel exists yet; these stay simulated demo values.
			ConversionRate:    roundTo1(4.5 + rand.Float64()*2),
			AverageOrderValue: 3800 + rand.Intn(1400),
			RevenueToday:      50000 + rand.Intn(150000),
			SatisfactionScore: roundTo1(4.2 + rand.Float64()*0.6),
		},
		ChannelBreakdown: breakdown,
		Timestamp:        time.Now().UTC(),
	}, nil
}

func roundTo1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
