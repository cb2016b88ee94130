// ABOUTME: Request log storage operations.
// ABOUTME: Handles inserting and querying HTTP request logs per resource.

package store

import "time"

// RequestLog represents an HTTP request log entry
type RequestLog struct {
	ID           int64
	Timestamp    time.Time
	Resource     string
	Method       string
	Path         string
	Query        string
	StatusCode   int
	DurationMs   int
	UserID       int64
	IPAddress    string
	UserAgent    string
	RequestBody  string
	ResponseBody string
}

// LogRequest inserts a request log entry
func (s *Store) LogRequest(log *RequestLog) error {
	_, err := s.db.Exec(`
		INSERT INTO request_logs (resource, method, path, query, status_code, duration_ms, user_id, ip_address, user_agent, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.Resource, log.Method, log.Path, log.Query, log.StatusCode, log.DurationMs, log.UserID, log.IPAddress, log.UserAgent, log.RequestBody, log.ResponseBody)
	return err
}

// RequestLogQuery represents filters for request logs
type RequestLogQuery struct {
	Limit      int
	Offset     int
	Resource   string
	Method     string
	PathPrefix string
	StatusCode int
	Since      time.Time
}

// GetRequestLogs retrieves request logs with filtering, newest first
func (s *Store) GetRequestLogs(q *RequestLogQuery) ([]*RequestLog, error) {
	query := `SELECT id, timestamp, COALESCE(resource, ''), method, path, COALESCE(query, ''), status_code, duration_ms,
	          COALESCE(user_id, 0), COALESCE(ip_address, ''), COALESCE(user_agent, ''),
	          COALESCE(request_body, ''), COALESCE(response_body, '')
	          FROM request_logs WHERE 1=1`
	where, args := q.where()
	query += where

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, q.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*RequestLog
	for rows.Next() {
		log := &RequestLog{}
		var timestamp string
		if err := rows.Scan(&log.ID, &timestamp, &log.Resource, &log.Method, &log.Path, &log.Query, &log.StatusCode,
			&log.DurationMs, &log.UserID, &log.IPAddress, &log.UserAgent,
			&log.RequestBody, &log.ResponseBody); err != nil {
			return nil, err
		}
		log.Timestamp = parseTimestamp(timestamp)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// CountRequestLogs returns how many logged requests match q. Limit and
// Offset are ignored.
func (s *Store) CountRequestLogs(q *RequestLogQuery) (int, error) {
	where, args := q.where()
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM request_logs WHERE 1=1"+where, args...).Scan(&count)
	return count, err
}

func (q *RequestLogQuery) where() (string, []any) {
	if q == nil {
		return "", nil
	}
	clause := ""
	args := []any{}
	if q.Resource != "" {
		clause += " AND resource = ?"
		args = append(args, q.Resource)
	}
	if q.Method != "" {
		clause += " AND method = ?"
		args = append(args, q.Method)
	}
	if q.PathPrefix != "" {
		clause += ` AND path LIKE ? ESCAPE '\'`
		args = append(args, escapeSQLLike(q.PathPrefix)+"%")
	}
	if q.StatusCode > 0 {
		clause += " AND status_code = ?"
		args = append(args, q.StatusCode)
	}
	if !q.Since.IsZero() {
		clause += " AND timestamp >= ?"
		args = append(args, q.Since.UTC().Format(timestampLayout))
	}
	return clause, args
}

// GetResourceErrorRate returns the error rate percentage for a resource since a given time
func (s *Store) GetResourceErrorRate(resource string, since time.Time) (float64, error) {
	var totalCount, errorCount int

	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0)
		FROM request_logs
		WHERE resource = ? AND timestamp >= ?
	`, resource, since.UTC().Format(timestampLayout)).Scan(&totalCount, &errorCount)
	if err != nil {
		return 0, err
	}

	// No requests means 0% error rate
	if totalCount == 0 {
		return 0, nil
	}
	return (float64(errorCount) / float64(totalCount)) * 100.0, nil
}
