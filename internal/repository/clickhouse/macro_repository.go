package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tradecouncil/internal/domain/marketdata"
	"tradecouncil/pkg/errors"
)

// MacroRepository reads the economic calendar
type MacroRepository struct {
	conn driver.Conn
}

// NewMacroRepository creates a new macro repository
func NewMacroRepository(conn driver.Conn) *MacroRepository {
	return &MacroRepository{conn: conn}
}

// UpcomingEvents retrieves scheduled releases in a time range
func (r *MacroRepository) UpcomingEvents(ctx context.Context, from, to time.Time) ([]marketdata.EconomicEvent, error) {
	query := `
		SELECT title, impact, event_time, forecast, previous
		FROM macro_events
		WHERE event_time >= ? AND event_time <= ?
		ORDER BY event_time ASC
		LIMIT 50
	`

	rows, err := r.conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "query upcoming events")
	}
	defer rows.Close()

	var events []marketdata.EconomicEvent
	for rows.Next() {
		var e marketdata.EconomicEvent
		if err := rows.Scan(&e.Name, &e.Importance, &e.ScheduledAt, &e.Forecast, &e.Previous); err != nil {
			return nil, errors.Wrap(err, "scan macro event")
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
