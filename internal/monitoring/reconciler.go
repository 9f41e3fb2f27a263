package monitoring

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Reconciler repairs the denormalized owner -> post index in the
// background. The posts table is authoritative: rows left behind by a
// failed index update after a post delete are removed, and posts
// missing from their owner's index are re-added.
type Reconciler struct {
	db       *sql.DB
	schedule cron.Schedule
	done     chan bool
}

// NewReconciler creates a reconciler running on the given cadence.
// The spec accepts standard cron expressions and @every durations.
func NewReconciler(db *sql.DB, scheduleSpec string) (*Reconciler, error) {
	schedule, err := cron.ParseStandard(scheduleSpec)
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		db:       db,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run starts the reconciliation loop.
func (rc *Reconciler) Run() {
	log.Info().Msg("Starting background index reconciler...")

	// Run once immediately on start
	rc.ReconcileOnce(context.Background())

	for {
		timer := time.NewTimer(time.Until(rc.schedule.Next(time.Now())))
		select {
		case <-rc.done:
			timer.Stop()
			log.Info().Msg("Stopping background index reconciler.")
			return
		case <-timer.C:
			rc.ReconcileOnce(context.Background())
		}
	}
}

// Stop halts the reconciler.
func (rc *Reconciler) Stop() {
	rc.done <- true
}

// ReconcileOnce performs a single repair pass.
func (rc *Reconciler) ReconcileOnce(ctx context.Context) {
	if removed, err := rc.removeDanglingEntries(ctx); err != nil {
		log.Error().Err(err).Msg("Reconciler: failed to remove dangling index entries")
	} else if removed > 0 {
		log.Warn().Int64("removed", removed).Msg("Reconciler: removed dangling owner index entries")
	}

	if added, err := rc.restoreMissingEntries(ctx); err != nil {
		log.Error().Err(err).Msg("Reconciler: failed to restore missing index entries")
	} else if added > 0 {
		log.Warn().Int("added", added).Msg("Reconciler: restored missing owner index entries")
	}
}

// removeDanglingEntries drops index rows whose post no longer exists.
func (rc *Reconciler) removeDanglingEntries(ctx context.Context) (int64, error) {
	res, err := rc.db.ExecContext(ctx,
		"DELETE FROM user_posts WHERE post_id NOT IN (SELECT id FROM posts)")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// restoreMissingEntries appends an index row for any post absent from
// its author's index, oldest first so restored rows keep creation
// order.
func (rc *Reconciler) restoreMissingEntries(ctx context.Context) (int, error) {
	rows, err := rc.db.QueryContext(ctx, `
		SELECT p.id, p.author_id
		FROM posts p
		LEFT JOIN user_posts up ON up.post_id = p.id AND up.user_id = p.author_id
		WHERE up.post_id IS NULL
		ORDER BY p.created_at`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type missing struct {
		postID   string
		authorID string
	}
	var entries []missing
	for rows.Next() {
		var m missing
		if err := rows.Scan(&m.postID, &m.authorID); err != nil {
			return 0, err
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	added := 0
	for _, m := range entries {
		_, err := rc.db.ExecContext(ctx, `
			INSERT INTO user_posts(user_id, post_id, position)
			VALUES(?, ?, COALESCE((SELECT MAX(position) + 1 FROM user_posts WHERE user_id = ?), 0))`,
			m.authorID, m.postID, m.authorID)
		if err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
