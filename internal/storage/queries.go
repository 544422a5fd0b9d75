package storage

// Schema lives in migrations/; these are the runtime queries.
const (
	queryInsertRun = `INSERT INTO runs (id, owner, hide_names, include_group_chats, location, created_at)
		VALUES (:id, :owner, :hide_names, :include_group_chats, :location, :created_at)`

	queryInsertMessage = `INSERT INTO messages (run_id, position, conversation_name, sender_name, timestamp_ms, content, sendees, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	queryInsertSource = `INSERT INTO sources (run_id, source_path, conversation_name, messages, raw, raw_size)
		VALUES (?, ?, ?, ?, ?, ?)`

	querySelectRunColumns = `SELECT r.id, r.owner, r.hide_names, r.include_group_chats, r.location, r.created_at,
			(SELECT COUNT(DISTINCT m.conversation_name) FROM messages m WHERE m.run_id = r.id) AS conversations,
			(SELECT COUNT(*) FROM messages m WHERE m.run_id = r.id) AS messages
		FROM runs r`

	querySelectRun = querySelectRunColumns + ` WHERE r.id = ?`

	queryListRuns = querySelectRunColumns + ` ORDER BY r.created_at DESC, r.id LIMIT ?`

	queryResolveRunPrefix = `SELECT id FROM runs WHERE substr(id, 1, length(?1)) = ?1 ORDER BY created_at DESC LIMIT 2`

	queryLatestRunID = `SELECT id FROM runs ORDER BY created_at DESC, id LIMIT 1`

	querySelectMessages = `SELECT id, conversation_name, sender_name, timestamp_ms, content, sendees, date
		FROM messages WHERE run_id = ? ORDER BY position`

	querySelectSources = `SELECT id, source_path, conversation_name, messages, raw_size, COALESCE(LENGTH(raw), 0) AS stored_size
		FROM sources WHERE run_id = ? ORDER BY id`

	querySelectRawSources = `SELECT source_path, raw, raw_size FROM sources
		WHERE run_id = ? AND raw IS NOT NULL ORDER BY id`

	queryDeleteRunMessages = `DELETE FROM messages WHERE run_id = ?`
	queryDeleteRunSources  = `DELETE FROM sources WHERE run_id = ?`
	queryDeleteRun         = `DELETE FROM runs WHERE id = ?`

	querySearchMessages = `
		SELECT m.id, m.conversation_name, m.sender_name, m.timestamp_ms, m.content, m.sendees, m.date,
			snippet(messages_fts, 0, '[', ']', '...', 12) AS snippet,
			bm25(messages_fts) AS score
		FROM messages_fts
		JOIN messages m ON messages_fts.rowid = m.id
		WHERE messages_fts MATCH ? AND m.run_id = ?`

	queryCountRuns          = `SELECT COUNT(*) FROM runs`
	queryCountMessages      = `SELECT COUNT(*) FROM messages`
	queryCountConversations = `SELECT COUNT(DISTINCT run_id || char(0) || conversation_name) FROM messages`
	querySourceSizes        = `SELECT COUNT(*) AS sources, COALESCE(SUM(raw_size), 0) AS raw_bytes,
		COALESCE(SUM(LENGTH(raw)), 0) AS stored_bytes FROM sources`
)
