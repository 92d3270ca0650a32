package history

import (
	"database/sql"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/XenioxYT/discord-chatbot/internal/logger"
)

// Archive is a write-only SQLite transcript of every appended message, kept
// for offline inspection. It is never read back into a conversation: history
// does not survive a restart. All failures degrade to logging.
type Archive struct {
	db *sql.DB
}

// OpenArchive opens (or creates) the transcript database at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT,
		role TEXT,
		name TEXT,
		content TEXT,
		created_at DATETIME
	);`); err != nil {
		db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

// Save records one message. Errors are logged, not returned; losing a
// transcript row must never fail a turn.
func (a *Archive) Save(conversationID string, msg Message) {
	_, err := a.db.Exec(
		`INSERT INTO messages (conversation_id, role, name, content, created_at) VALUES (?,?,?,?,?);`,
		conversationID, string(msg.Role), msg.Name, msg.Content, time.Now().UTC(),
	)
	if err != nil {
		logger.L.Warn("transcript archive insert failed", "error", err)
	}
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
