package msgstore

import (
	"database/sql"
)

// Calls are ordered newest first.
var callStrategies = []strategy{
	{name: "call_log", query: `
SELECT call_log._id, jid.raw_string, call_log.timestamp, call_log.from_me,
	call_log.duration, call_log.video_call, call_log.call_result
FROM call_log
JOIN jid ON jid._id = call_log.jid_row_id
ORDER BY call_log.timestamp DESC, call_log._id DESC`},
	{name: "call_log_basic", query: `
SELECT call_log._id, jid.raw_string, call_log.timestamp, call_log.from_me,
	call_log.duration, call_log.video_call, NULL
FROM call_log
JOIN jid ON jid._id = call_log.jid_row_id
ORDER BY call_log.timestamp DESC, call_log._id DESC`},
	{name: "calls", query: `
SELECT _id, jid, timestamp, from_me, duration, video_call, call_result
FROM calls
ORDER BY timestamp DESC, _id DESC`},
}

func scanCall(r rowScanner) (CallLog, error) {
	var (
		id                                  int64
		jid                                 sql.NullString
		ts, fromMe, duration, video, result sql.NullInt64
	)
	if err := r.Scan(&id, &jid, &ts, &fromMe, &duration, &video, &result); err != nil {
		return CallLog{}, err
	}
	return CallLog{
		CallID:     id,
		JID:        jid.String,
		Timestamp:  ts.Int64,
		FromMe:     fromMe.Int64 != 0,
		Duration:   duration.Int64,
		VideoCall:  video.Int64 != 0,
		CallResult: nullInt(result),
	}, nil
}

// CallLogs lists every recorded call.
func (p *Parser) CallLogs() ([]CallLog, error) {
	var out []CallLog
	err := p.withDB("call_logs", p.path, func(db *sql.DB) error {
		var err error
		out, _, err = probe(p, db, "call_logs", callStrategies, scanCall)
		return err
	})
	return out, err
}
