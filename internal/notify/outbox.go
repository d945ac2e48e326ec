package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mind-engage/assessment-engine/internal/submission"
)

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"site_id"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"created_at"`
}

// Outbox appends notifications to event_log for a relay to pick up.
type Outbox struct {
	db     *sql.DB
	siteID string
	now    func() time.Time
}

func NewOutbox(db *sql.DB, siteID string) *Outbox {
	if siteID == "" {
		siteID = "local"
	}
	return &Outbox{db: db, siteID: siteID, now: time.Now}
}

func (o *Outbox) Notify(ctx context.Context, n submission.Notification) error {
	buf, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return o.Append(ctx, Event{
		SiteID:   o.siteID,
		Type:     n.EventType,
		Key:      n.Metadata["submission_id"],
		DataJSON: string(buf),
	})
}

func (o *Outbox) Append(ctx context.Context, e Event) error {
	_, err := o.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, o.now().Unix())
	return err
}

// Since returns events after seq in append order.
func (o *Outbox) Since(ctx context.Context, seq int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := o.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, seq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
