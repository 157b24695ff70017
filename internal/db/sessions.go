package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

const defaultQueryLimit = 100

// SessionRecord is one row of count_sessions.
type SessionRecord struct {
	SessionID   string   `json:"session_id"`
	Source      string   `json:"source"`
	StartedUnix float64  `json:"started_unix"`
	EndedUnix   *float64 `json:"ended_unix,omitempty"`
	ConfigJSON  string   `json:"config_json"`
	FrameWidth  int      `json:"frame_width"`
	FrameHeight int      `json:"frame_height"`
	Frames      int      `json:"frames"`
	Rejected    int      `json:"rejected"`
	Degenerate  int      `json:"degenerate"`
	Peaks       int      `json:"peaks"`
	Total       int      `json:"running_count"`
}

// FrameCountRecord is one row of frame_counts.
type FrameCountRecord struct {
	SessionID    string  `json:"session_id"`
	FrameIndex   int     `json:"frame_index"`
	Peaks        []int   `json:"peaks"`
	AddNum       int     `json:"add_num"`
	RunningCount int     `json:"running_count"`
	Degenerate   bool    `json:"degenerate"`
	RecordedUnix float64 `json:"recorded_unix"`
}

// InsertSession stores a new session row.
func (db *DB) InsertSession(rec SessionRecord) error {
	_, err := db.Exec(`
		INSERT INTO count_sessions (
			session_id, source, started_unix, config_json, frame_width, frame_height
		) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Source, rec.StartedUnix, rec.ConfigJSON, rec.FrameWidth, rec.FrameHeight,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session %s: %w", rec.SessionID, err)
	}
	return nil
}

// FinishSession records the end time and final tallies of a session.
func (db *DB) FinishSession(rec SessionRecord) error {
	res, err := db.Exec(`
		UPDATE count_sessions
		SET ended_unix = ?, frames = ?, rejected = ?, degenerate = ?, peaks = ?, total = ?
		WHERE session_id = ?`,
		rec.EndedUnix, rec.Frames, rec.Rejected, rec.Degenerate, rec.Peaks, rec.Total, rec.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session %s: %w", rec.SessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", rec.SessionID, sql.ErrNoRows)
	}
	return nil
}

// InsertFrameCount stores the result of one frame.
func (db *DB) InsertFrameCount(rec FrameCountRecord) error {
	peaks := rec.Peaks
	if peaks == nil {
		peaks = []int{}
	}
	peaksJSON, err := json.Marshal(peaks)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO frame_counts (
			session_id, frame_index, peaks_json, add_num, running_count, degenerate, recorded_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.FrameIndex, string(peaksJSON), rec.AddNum, rec.RunningCount, rec.Degenerate, rec.RecordedUnix,
	)
	if err != nil {
		return fmt.Errorf("failed to insert frame %d of session %s: %w", rec.FrameIndex, rec.SessionID, err)
	}
	return nil
}

// Sessions returns the most recently started sessions, newest first.
// A non-positive limit selects the default of 100.
func (db *DB) Sessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := db.Query(`
		SELECT session_id, source, started_unix, ended_unix, config_json, frame_width, frame_height,
		       frames, rejected, degenerate, peaks, total
		FROM count_sessions
		ORDER BY started_unix DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []SessionRecord{}
	for rows.Next() {
		var rec SessionRecord
		var ended sql.NullFloat64
		if err := rows.Scan(
			&rec.SessionID, &rec.Source, &rec.StartedUnix, &ended, &rec.ConfigJSON,
			&rec.FrameWidth, &rec.FrameHeight,
			&rec.Frames, &rec.Rejected, &rec.Degenerate, &rec.Peaks, &rec.Total,
		); err != nil {
			return nil, err
		}
		if ended.Valid {
			v := ended.Float64
			rec.EndedUnix = &v
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

// FrameCounts returns the stored frames of a session in frame order.
// A non-positive limit selects the default of 100.
func (db *DB) FrameCounts(sessionID string, limit int) ([]FrameCountRecord, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	rows, err := db.Query(`
		SELECT session_id, frame_index, peaks_json, add_num, running_count, degenerate, recorded_unix
		FROM frame_counts
		WHERE session_id = ?
		ORDER BY frame_index ASC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	frames := []FrameCountRecord{}
	for rows.Next() {
		var rec FrameCountRecord
		var peaksJSON string
		if err := rows.Scan(
			&rec.SessionID, &rec.FrameIndex, &peaksJSON, &rec.AddNum, &rec.RunningCount,
			&rec.Degenerate, &rec.RecordedUnix,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(peaksJSON), &rec.Peaks); err != nil {
			return nil, fmt.Errorf("frame %d: bad peaks_json: %w", rec.FrameIndex, err)
		}
		frames = append(frames, rec)
	}
	return frames, rows.Err()
}
