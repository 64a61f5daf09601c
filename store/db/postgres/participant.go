package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/slotfinder/store"
)

func (d *DB) CreateParticipant(ctx context.Context, create *store.Participant) (*store.Participant, error) {
	parsedDates, err := store.MarshalParsedDates(create.ParsedDates)
	if err != nil {
		return nil, err
	}

	fields := []string{"id", "event_id", "name", "raw_date_input", "parsed_dates", "timezone"}
	args := []any{create.ID, create.EventID, create.Name, create.RawDateInput, parsedDates, create.Timezone}
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		args = append(args, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		args = append(args, create.UpdatedTs)
	}

	stmt := `INSERT INTO participant (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING created_ts, updated_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	return create, nil
}

func (d *DB) ListParticipants(ctx context.Context, find *store.FindParticipant) ([]*store.Participant, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "participant.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.EventID; v != nil {
		where, args = append(where, "participant.event_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, event_id, created_ts, updated_ts, name,
			raw_date_input, parsed_dates::TEXT, timezone
		FROM participant
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Participant, 0)
	for rows.Next() {
		var participant store.Participant
		var parsedDates string
		if err := rows.Scan(
			&participant.ID,
			&participant.EventID,
			&participant.CreatedTs,
			&participant.UpdatedTs,
			&participant.Name,
			&participant.RawDateInput,
			&parsedDates,
			&participant.Timezone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		intervals, err := store.UnmarshalParsedDates(parsedDates)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", participant.ID, err)
		}
		participant.ParsedDates = intervals
		list = append(list, &participant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateParticipant(ctx context.Context, update *store.UpdateParticipant) error {
	set, args := []string{}, []any{}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Name; v != nil {
		set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.RawDateInput; v != nil {
		set, args = append(set, "raw_date_input = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ParsedDates; v != nil {
		parsedDates, err := store.MarshalParsedDates(*v)
		if err != nil {
			return err
		}
		set, args = append(set, "parsed_dates = "+placeholder(len(args)+1)), append(args, parsedDates)
	}
	if v := update.Timezone; v != nil {
		set, args = append(set, "timezone = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, update.ID)
	stmt := `UPDATE participant SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args))
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

func (d *DB) DeleteParticipant(ctx context.Context, delete *store.DeleteParticipant) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM participant WHERE id = `+placeholder(1), delete.ID); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return nil
}
